package evaluation

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	numberStyle   = cellStyle.Align(lipgloss.Right)
	relevantStyle = cellStyle.Foreground(lipgloss.Color("10"))
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Render writes the report as two tables followed by the summary lines.
func Render(w io.Writer, r *Report) error {
	var b strings.Builder
	b.WriteString(rankTable(r).String())
	b.WriteString("\n\n")
	b.WriteString(levelTable(r).String())
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Average precision: %.2f\n", r.MeanAveragePrecision)
	fmt.Fprintf(&b, "%d results in total (%dms).\n", r.TotalResults, r.Elapsed.Milliseconds())
	_, err := io.WriteString(w, b.String())
	return err
}

func rankTable(r *Report) *table.Table {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("Rank", "Similarity", "Document", "Precision", "Recall").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 2 && row >= 0 && row < len(r.Rows) && r.Rows[row].Relevant:
				return relevantStyle
			case col == 2:
				return cellStyle
			default:
				return numberStyle
			}
		})
	for _, row := range r.Rows {
		t.Row(
			strconv.Itoa(row.Rank),
			fmt.Sprintf("%.4f", row.Score),
			row.DocID,
			fmt.Sprintf("%.2f", row.Precision),
			fmt.Sprintf("%.2f", row.Recall),
		)
	}
	return t
}

func levelTable(r *Report) *table.Table {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("Recall", "Precision").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return numberStyle
		})
	for _, l := range r.Levels {
		t.Row(fmt.Sprintf("%.1f", l.Recall), fmt.Sprintf("%.2f", l.Precision))
	}
	return t
}
