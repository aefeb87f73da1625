// Package corpus loads the text messages a benchmark runs over. Messages
// come from a CSV file when one is available and from a deterministic
// synthetic generator otherwise.
package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Defaults used when the corresponding Config field is zero.
const (
	DefaultColumn = "message"
	DefaultLimit  = 20
)

// ErrNoTextColumn is returned when the CSV header lacks the text column.
var ErrNoTextColumn = errors.New("text column not found")

// Corpus is an ordered set of messages plus where they came from.
type Corpus struct {
	Messages  []string
	Source    string
	Synthetic bool
}

// Config controls corpus resolution.
type Config struct {
	Path   string
	Column string
	// Limit caps the number of messages taken from the file. Zero or
	// negative means no cap.
	Limit int
	// Synthetic shapes the fallback corpus.
	Synthetic SyntheticConfig
	// NoFallback turns a load failure into an error instead of falling
	// back to the synthetic corpus.
	NoFallback bool
}

// Load reads messages from a CSV stream with a header row. Rows whose
// text column is missing or blank are skipped. At most limit messages are
// returned when limit is positive.
func Load(r io.Reader, column string, limit int) ([]string, error) {
	if column == "" {
		column = DefaultColumn
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrNoTextColumn)
		}

		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := columnIndex(header, column)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q in %v", ErrNoTextColumn, column, header)
	}

	var messages []string

	// Rows are numbered from the header, which is row 1. Skipped rows
	// still count.
	for row := 2; limit <= 0 || len(messages) < limit; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}

		if idx >= len(record) || strings.TrimSpace(record[idx]) == "" {
			continue
		}

		messages = append(messages, record[idx])
	}

	return messages, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path, column string, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f, column, limit)
}

// Resolve loads the configured file, falling back to the synthetic corpus
// when the file cannot be read. The fallback is logged, flagged on the
// returned Corpus, and capped by Limit like a file corpus.
func Resolve(ctx context.Context, logger *slog.Logger, cfg Config) (Corpus, error) {
	if cfg.Path != "" {
		messages, err := LoadFile(cfg.Path, cfg.Column, cfg.Limit)
		if err == nil {
			logger.InfoContext(ctx, "loaded corpus",
				slog.String("path", cfg.Path),
				slog.Int("messages", len(messages)),
			)

			return Corpus{Messages: messages, Source: cfg.Path}, nil
		}

		if cfg.NoFallback {
			return Corpus{}, fmt.Errorf("load corpus %s: %w", cfg.Path, err)
		}

		logger.WarnContext(ctx, "corpus unavailable, using synthetic messages",
			slog.String("path", cfg.Path),
			slog.String("error", err.Error()),
		)
	} else if cfg.NoFallback {
		return Corpus{}, errors.New("no corpus path configured")
	}

	gen := NewGenerator(cfg.Synthetic)
	messages := gen.Messages()
	if cfg.Limit > 0 && len(messages) > cfg.Limit {
		messages = messages[:cfg.Limit]
	}

	logger.WarnContext(ctx, "running on synthetic corpus",
		slog.Int("messages", len(messages)),
		slog.Int("repeat", gen.cfg.Repeat),
	)

	return Corpus{
		Messages:  messages,
		Source:    SyntheticSource,
		Synthetic: true,
	}, nil
}

func columnIndex(header []string, column string) int {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if names[i] == column {
			return i
		}
	}

	for i, n := range names {
		if strings.EqualFold(n, column) {
			return i
		}
	}

	return -1
}
