package output

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorPurple = lipgloss.Color("#7D56F4")
	colorBlue   = lipgloss.Color("#4285F4")
	colorGray   = lipgloss.Color("#626262")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPurple)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	borderStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	numStyle = lipgloss.NewStyle().
			Foreground(colorBlue)
)

// newTable returns a rounded table with bold headers. Columns listed in
// numeric are right-aligned.
func newTable(headers []string, numeric ...int) *table.Table {
	right := map[int]bool{}
	for _, c := range numeric {
		right[c] = true
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return labelStyle.Bold(true)
			}
			if right[col] {
				return lipgloss.NewStyle().Align(lipgloss.Right)
			}
			return lipgloss.NewStyle()
		}).
		Headers(headers...)
}
