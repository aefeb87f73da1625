package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/weiihann/cipherbench/aggregate"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)
	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)
	quantumStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Padding(0, 1)
	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// quantumColumn is the index of the quantum-resistant column in Terminal.
const quantumColumn = 5

// Terminal writes a styled summary table for interactive output.
func Terminal(w io.Writer, summaries []aggregate.Summary) error {
	if len(summaries) == 0 {
		return fmt.Errorf("no results to report")
	}

	fastest := findFastest(summaries)

	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Algorithm,
			formatSeconds(s.MeanEncryptionTime),
			formatSeconds(s.MeanDecryptionTime),
			formatBytes(s.MeanCiphertextSize),
			formatBits(s.KeySizeBits),
			yesNo(s.QuantumResistant),
			s.BestUseCase,
			formatSlowdown(total(s), fastest),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("Algorithm", "Encrypt", "Decrypt", "Ciphertext",
			"Key Size", "Quantum", "Best Use Case", "Slowdown").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == quantumColumn && rows[row][col] == "Yes":
				return quantumStyle
			default:
				return cellStyle
			}
		})

	_, err := fmt.Fprintln(w, t.Render())

	return err
}
