// Package algorithm defines the uniform adapter contract for benchmarked
// encryption schemes and provides the AES, RSA hybrid, and simulated
// post-quantum adapters.
package algorithm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Algorithm names. The set is closed; reports and stores key on these.
const (
	NameAES      = "AES"
	NameRSA      = "RSA"
	NameKyber    = "Kyber"
	NameMcEliece = "McEliece"
)

var (
	// ErrRoundTrip is returned when decryption succeeds but does not
	// reproduce the original message.
	ErrRoundTrip = errors.New("decrypted text does not match input")

	// ErrMessageTooLong is returned when the hybrid session key does not
	// fit into a single RSA-OAEP block.
	ErrMessageTooLong = errors.New("session key exceeds OAEP capacity")

	// ErrUnknownAlgorithm is returned by Select for names outside the
	// registered set.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
)

// Metadata is the static description of an algorithm. It never varies
// between trials of the same algorithm.
type Metadata struct {
	KeySizeBits      int
	QuantumResistant bool
	BestUseCase      string
}

// Measurement is the outcome of one encrypt/decrypt cycle. Times are
// wall-clock seconds.
type Measurement struct {
	Algorithm      string
	CiphertextSize int
	EncryptionTime float64
	DecryptionTime float64
	Metadata
}

// Adapter wraps one encryption scheme behind a single trial operation.
type Adapter interface {
	Name() string
	Metadata() Metadata
	Run(ctx context.Context, message string) (Measurement, error)
}

// DelayModel supplies the artificial latency of simulated algorithms.
type DelayModel interface {
	Delay(ctx context.Context, d time.Duration) error
}

// SleepDelay pauses for the requested duration or until ctx is done.
type SleepDelay struct{}

// Delay implements DelayModel.
func (SleepDelay) Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoDelay returns immediately. Used to run the pipeline without paying
// the simulated latency.
type NoDelay struct{}

// Delay implements DelayModel.
func (NoDelay) Delay(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// SizePolicy turns a scaled, fractional ciphertext size into bytes.
type SizePolicy int

const (
	// RoundNearest rounds half away from zero.
	RoundNearest SizePolicy = iota
	// Truncate drops the fractional part.
	Truncate
)

// Apply converts x to a byte count under the policy.
func (p SizePolicy) Apply(x float64) int {
	if p == Truncate {
		return int(math.Trunc(x))
	}

	return int(math.Round(x))
}

func (p SizePolicy) String() string {
	switch p {
	case RoundNearest:
		return "round"
	case Truncate:
		return "truncate"
	default:
		return fmt.Sprintf("SizePolicy(%d)", int(p))
	}
}

// ParseSizePolicy maps "round" or "truncate" to a SizePolicy.
func ParseSizePolicy(s string) (SizePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "round":
		return RoundNearest, nil
	case "truncate":
		return Truncate, nil
	default:
		return 0, fmt.Errorf("unknown size policy %q", s)
	}
}

func seconds(d time.Duration) float64 {
	if d < 0 {
		return 0
	}

	return d.Seconds()
}
