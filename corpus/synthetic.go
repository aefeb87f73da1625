package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	mrand "math/rand"
	"strconv"
	"strings"
)

// SyntheticSource is the Corpus.Source of generated corpora.
const SyntheticSource = "synthetic"

const (
	syntheticPrefix = "This is a test email message "
	syntheticFiller = "test content "
)

// SyntheticConfig controls synthetic corpus generation.
type SyntheticConfig struct {
	// Count is the number of messages. Zero means DefaultLimit.
	Count int
	// Repeat is how many filler phrases each message carries. Zero means 20.
	Repeat int
	// Seed varies the filler count per message when non-zero. With a zero
	// seed every message has exactly Repeat phrases.
	Seed int64
}

// Summary describes a generated corpus.
type Summary struct {
	Messages   int
	TotalChars int
	MinChars   int
	MaxChars   int
}

// Generator produces deterministic synthetic messages.
type Generator struct {
	cfg SyntheticConfig
}

// NewGenerator creates a Generator, filling zero fields with defaults.
func NewGenerator(cfg SyntheticConfig) *Generator {
	if cfg.Count <= 0 {
		cfg.Count = DefaultLimit
	}

	if cfg.Repeat <= 0 {
		cfg.Repeat = 20
	}

	return &Generator{cfg: cfg}
}

// Messages returns the generated corpus. Equal configs yield equal output.
func (g *Generator) Messages() []string {
	var rng *mrand.Rand
	if g.cfg.Seed != 0 {
		rng = mrand.New(mrand.NewSource(g.cfg.Seed))
	}

	messages := make([]string, g.cfg.Count)

	for i := range messages {
		repeat := g.cfg.Repeat
		if rng != nil {
			// Spread lengths over [Repeat/2, 3*Repeat/2].
			repeat = g.cfg.Repeat/2 + rng.Intn(g.cfg.Repeat+1)
		}

		messages[i] = syntheticPrefix +
			strings.Repeat(syntheticFiller, repeat) +
			strconv.Itoa(i)
	}

	return messages
}

// Generate writes the corpus to w as CSV with a single "message" column,
// loadable by Load.
func (g *Generator) Generate(w io.Writer) (Summary, error) {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{DefaultColumn}); err != nil {
		return Summary{}, fmt.Errorf("write header: %w", err)
	}

	var summary Summary

	for _, msg := range g.Messages() {
		if err := cw.Write([]string{msg}); err != nil {
			return summary, fmt.Errorf("write message %d: %w",
				summary.Messages+1, err)
		}

		n := len([]rune(msg))
		if summary.Messages == 0 || n < summary.MinChars {
			summary.MinChars = n
		}

		summary.MaxChars = max(summary.MaxChars, n)
		summary.TotalChars += n
		summary.Messages++
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return summary, fmt.Errorf("flush corpus: %w", err)
	}

	return summary, nil
}
