package algorithm

import (
	"fmt"
	"io"
	"strings"
)

// Options configures the default adapter set.
type Options struct {
	Rand       io.Reader
	Delay      DelayModel
	SizePolicy SizePolicy
	AEAD       AEAD
	RSABits    int
}

// KnownAlgorithms returns the supported algorithm names in benchmark order.
func KnownAlgorithms() []string {
	return []string{NameAES, NameRSA, NameKyber, NameMcEliece}
}

// Defaults builds every adapter in the order of KnownAlgorithms. The
// adapters share one locked view of opts.Rand.
func Defaults(opts Options) []Adapter {
	random := LockedReader(opts.Rand)

	return []Adapter{
		NewAES(random),
		NewHybrid(random, opts.RSABits, opts.AEAD),
		NewKyber(opts.Delay),
		NewMcEliece(opts.Delay, opts.SizePolicy),
	}
}

// Select keeps the adapters named in names, matched case-insensitively,
// preserving the order of adapters. An empty names list keeps all of them.
func Select(names []string, adapters []Adapter) ([]Adapter, error) {
	if len(names) == 0 {
		return adapters, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}

	selected := make([]Adapter, 0, len(names))

	for _, a := range adapters {
		key := strings.ToLower(a.Name())
		if want[key] {
			selected = append(selected, a)
			delete(want, key)
		}
	}

	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for _, n := range names {
			if want[strings.ToLower(strings.TrimSpace(n))] {
				unknown = append(unknown, n)
			}
		}

		return nil, fmt.Errorf("%w: %s (known: %s)",
			ErrUnknownAlgorithm,
			strings.Join(unknown, ", "),
			strings.Join(KnownAlgorithms(), ", "),
		)
	}

	return selected, nil
}
