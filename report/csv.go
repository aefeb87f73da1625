package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/weiihann/cipherbench/aggregate"
	"github.com/weiihann/cipherbench/harness"
)

// Output file names written by a benchmark run.
const (
	DetailedFile = "encryption_benchmark_detailed.csv"
	SummaryFile  = "encryption_benchmark_summary.csv"
)

// ErrMissingInput is returned when no complete pair of result tables can
// be found.
var ErrMissingInput = errors.New("benchmark results not found")

// DetailedColumns is the column schema of the detailed table.
var DetailedColumns = []string{
	"message_id",
	"algorithm_name",
	"ciphertext_size",
	"encryption_time",
	"decryption_time",
	"key_size_bits",
	"quantum_resistant",
	"best_use_case",
}

// SummaryColumns is the column schema of the summary table.
var SummaryColumns = []string{
	"algorithm_name",
	"mean_encryption_time",
	"mean_decryption_time",
	"mean_ciphertext_size",
	"key_size_bits",
	"quantum_resistant",
	"best_use_case",
}

// Column names used by earlier result files, mapped to the current schema.
var (
	detailedAliases = map[string]string{
		"email id":            "message_id",
		"algorithm":           "algorithm_name",
		"ciphertext size":     "ciphertext_size",
		"encryption time (s)": "encryption_time",
		"decryption time (s)": "decryption_time",
		"key size (bits)":     "key_size_bits",
		"quantum-resistant":   "quantum_resistant",
		"best use case":       "best_use_case",
	}
	summaryAliases = map[string]string{
		"algorithm":           "algorithm_name",
		"encryption time (s)": "mean_encryption_time",
		"decryption time (s)": "mean_decryption_time",
		"ciphertext size":     "mean_ciphertext_size",
		"key size (bits)":     "key_size_bits",
		"quantum-resistant":   "quantum_resistant",
		"best use case":       "best_use_case",
	}
)

// InputPair names a detailed and summary table that belong together.
type InputPair struct {
	Detailed string
	Summary  string
}

// DefaultInputs lists the table pairs the report looks for, in order.
func DefaultInputs() []InputPair {
	return []InputPair{
		{Detailed: "encryption_detailed_results.csv", Summary: "encryption_summary.csv"},
		{Detailed: DetailedFile, Summary: SummaryFile},
	}
}

// WriteDetailed writes one CSV row per record.
func WriteDetailed(w io.Writer, records []harness.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(DetailedColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range records {
		row := []string{
			strconv.Itoa(r.MessageID),
			r.Algorithm,
			strconv.Itoa(r.CiphertextSize),
			formatFloat(r.EncryptionTime),
			formatFloat(r.DecryptionTime),
			strconv.Itoa(r.KeySizeBits),
			strconv.FormatBool(r.QuantumResistant),
			r.BestUseCase,
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d/%s: %w",
				r.MessageID, r.Algorithm, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteSummary writes one CSV row per summary.
func WriteSummary(w io.Writer, summaries []aggregate.Summary) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(SummaryColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, s := range summaries {
		row := []string{
			s.Algorithm,
			formatFloat(s.MeanEncryptionTime),
			formatFloat(s.MeanDecryptionTime),
			formatFloat(s.MeanCiphertextSize),
			strconv.Itoa(s.KeySizeBits),
			strconv.FormatBool(s.QuantumResistant),
			s.BestUseCase,
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write summary %s: %w", s.Algorithm, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteFiles writes both tables into dir and returns their paths.
func WriteFiles(
	dir string,
	records []harness.Record,
	summaries []aggregate.Summary,
) (InputPair, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return InputPair{}, fmt.Errorf("create output dir: %w", err)
	}

	paths := InputPair{
		Detailed: filepath.Join(dir, DetailedFile),
		Summary:  filepath.Join(dir, SummaryFile),
	}

	if err := writeFile(paths.Detailed, func(w io.Writer) error {
		return WriteDetailed(w, records)
	}); err != nil {
		return InputPair{}, err
	}

	if err := writeFile(paths.Summary, func(w io.Writer) error {
		return WriteSummary(w, summaries)
	}); err != nil {
		return InputPair{}, err
	}

	return paths, nil
}

// ReadDetailed parses a detailed table. Columns are located by header name.
func ReadDetailed(r io.Reader) ([]harness.Record, error) {
	rows, idx, err := readTable(r, DetailedColumns, detailedAliases)
	if err != nil {
		return nil, err
	}

	records := make([]harness.Record, 0, len(rows))

	for i, row := range rows {
		p := rowParser{row: row, idx: idx}

		rec := harness.Record{
			MessageID:        p.integer("message_id"),
			Algorithm:        p.str("algorithm_name"),
			CiphertextSize:   p.integer("ciphertext_size"),
			EncryptionTime:   p.number("encryption_time"),
			DecryptionTime:   p.number("decryption_time"),
			KeySizeBits:      p.integer("key_size_bits"),
			QuantumResistant: p.boolean("quantum_resistant"),
			BestUseCase:      p.str("best_use_case"),
		}

		if p.err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, p.err)
		}

		records = append(records, rec)
	}

	return records, nil
}

// ReadSummary parses a summary table. Columns are located by header name.
func ReadSummary(r io.Reader) ([]aggregate.Summary, error) {
	rows, idx, err := readTable(r, SummaryColumns, summaryAliases)
	if err != nil {
		return nil, err
	}

	summaries := make([]aggregate.Summary, 0, len(rows))

	for i, row := range rows {
		p := rowParser{row: row, idx: idx}

		s := aggregate.Summary{
			Algorithm:          p.str("algorithm_name"),
			MeanEncryptionTime: p.number("mean_encryption_time"),
			MeanDecryptionTime: p.number("mean_decryption_time"),
			MeanCiphertextSize: p.number("mean_ciphertext_size"),
			KeySizeBits:        int(p.number("key_size_bits")),
			QuantumResistant:   p.boolean("quantum_resistant"),
			BestUseCase:        p.str("best_use_case"),
		}

		if p.err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, p.err)
		}

		summaries = append(summaries, s)
	}

	return summaries, nil
}

// LoadInputs reads the first pair in candidates whose two files both exist
// under dir. It fails with ErrMissingInput when no pair is complete and
// never falls through on a parse error.
func LoadInputs(
	dir string,
	candidates []InputPair,
) ([]aggregate.Summary, []harness.Record, InputPair, error) {
	tried := make([]string, 0, len(candidates))

	for _, c := range candidates {
		pair := InputPair{
			Detailed: filepath.Join(dir, c.Detailed),
			Summary:  filepath.Join(dir, c.Summary),
		}

		if !exists(pair.Detailed) || !exists(pair.Summary) {
			tried = append(tried, pair.Detailed+" + "+pair.Summary)

			continue
		}

		summaries, err := readFile(pair.Summary, ReadSummary)
		if err != nil {
			return nil, nil, pair, err
		}

		records, err := readFile(pair.Detailed, ReadDetailed)
		if err != nil {
			return nil, nil, pair, err
		}

		return summaries, records, pair, nil
	}

	return nil, nil, InputPair{}, fmt.Errorf(
		"%w (tried %s); run the benchmark first",
		ErrMissingInput, strings.Join(tried, ", "),
	)
}

func readTable(
	r io.Reader,
	columns []string,
	aliases map[string]string,
) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("empty table")
		}

		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))

	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if canonical, ok := aliases[strings.ToLower(name)]; ok {
			name = canonical
		}

		idx[name] = i
	}

	for _, c := range columns {
		if _, ok := idx[c]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", c)
		}
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}

	return rows, idx, nil
}

type rowParser struct {
	row []string
	idx map[string]int
	err error
}

func (p *rowParser) str(col string) string {
	i := p.idx[col]
	if i >= len(p.row) {
		if p.err == nil {
			p.err = fmt.Errorf("column %q missing", col)
		}

		return ""
	}

	return p.row[i]
}

func (p *rowParser) integer(col string) int {
	s := strings.TrimSpace(p.str(col))

	v, err := strconv.Atoi(s)
	if err != nil {
		// Tables written by dataframe tools may store integers as floats.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			p.fail(col, err)

			return 0
		}

		return int(f)
	}

	return v
}

func (p *rowParser) number(col string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(p.str(col)), 64)
	if err != nil {
		p.fail(col, err)
	}

	return v
}

func (p *rowParser) boolean(col string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(p.str(col)))
	if err != nil {
		p.fail(col, err)
	}

	return v
}

func (p *rowParser) fail(col string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("column %q: %w", col, err)
	}
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func exists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := fn(f); err != nil {
		f.Close()

		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	return nil
}

func readFile[T any](path string, fn func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T

		return zero, err
	}
	defer f.Close()

	v, err := fn(f)
	if err != nil {
		return v, fmt.Errorf("read %s: %w", path, err)
	}

	return v, nil
}
