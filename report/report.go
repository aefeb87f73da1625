// Package report formats benchmark results into tables, CSV files and a
// markdown document.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/weiihann/cipherbench/aggregate"
)

// Generate writes a markdown comparison table for the given summaries.
func Generate(w io.Writer, summaries []aggregate.Summary) error {
	if len(summaries) == 0 {
		return fmt.Errorf("no results to report")
	}

	fastest := findFastest(summaries)

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Algorithm | Encrypt | Decrypt | Ciphertext "+
		"| Key Size | Quantum-Resistant | Best Use Case | Slowdown |")
	fmt.Fprintln(w, "|-----------|---------|---------|------------"+
		"|----------|-------------------|---------------|----------|")

	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			s.Algorithm,
			formatSeconds(s.MeanEncryptionTime),
			formatSeconds(s.MeanDecryptionTime),
			formatBytes(s.MeanCiphertextSize),
			formatBits(s.KeySizeBits),
			yesNo(s.QuantumResistant),
			s.BestUseCase,
			formatSlowdown(total(s), fastest),
		)
	}

	return nil
}

// GenerateJSON writes v as indented JSON to w.
func GenerateJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func total(s aggregate.Summary) float64 {
	return s.MeanEncryptionTime + s.MeanDecryptionTime
}

// findFastest returns the smallest positive encrypt+decrypt time, or 0.
func findFastest(summaries []aggregate.Summary) float64 {
	fastest := math.MaxFloat64
	for _, s := range summaries {
		if t := total(s); t > 0 && t < fastest {
			fastest = t
		}
	}

	if fastest == math.MaxFloat64 {
		return 0
	}

	return fastest
}

func formatSlowdown(t, fastest float64) string {
	if fastest <= 0 || t <= 0 {
		return "-"
	}

	return fmt.Sprintf("%.2fx", t/fastest)
}

func formatSeconds(s float64) string {
	switch {
	case s <= 0:
		return "0s"
	case s < 1e-3:
		return fmt.Sprintf("%.1fµs", s*1e6)
	case s < 1:
		return fmt.Sprintf("%.2fms", s*1e3)
	default:
		return fmt.Sprintf("%.2fs", s)
	}
}

func formatBytes(b float64) string {
	if b <= 0 {
		return "-"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := b
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	formatted := fmt.Sprintf("%.1f", size)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return formatted + " " + units[unit]
}

func formatBits(bits int) string {
	if bits >= 8*1024 {
		return fmt.Sprintf("%d (%s)", bits, formatBytes(float64(bits)/8))
	}

	return fmt.Sprintf("%d", bits)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}

	return "No"
}
