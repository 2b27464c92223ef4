package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Table is a plain column listing with a styled header row.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Status picks the style of a row by the value of this column, -1 for none.
	Status int
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("6"))
)

// StyleStatus colours ownership and severity labels.
func StyleStatus(status string) lipgloss.Style {
	switch {
	case status == "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case status == "warning", status == "shared":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	case strings.HasPrefix(status, "&"):
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	case status == "copy":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	}
}

// Render lays the table out within width cells (0 - без ограничения);
// the last column is truncated when the table does not fit. Styles are
// applied only when color is set.
func (t Table) Render(width int, color bool) string {
	cols := len(t.Headers)
	widths := make([]int, cols)
	for i, h := range t.Headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < cols && i < len(row); i++ {
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}
	if width > 0 && cols > 0 {
		used := 2 * (cols - 1)
		for _, w := range widths[:cols-1] {
			used += w
		}
		widths[cols-1] = max(min(widths[cols-1], width-used), 4)
	}

	style := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(style(titleStyle, t.Title))
		b.WriteString("\n\n")
	}
	cells := make([]string, cols)
	for i, h := range t.Headers {
		cells[i] = style(headerStyle, pad(h, widths[i]))
	}
	b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
	b.WriteByte('\n')
	for _, row := range t.Rows {
		for i := range cells {
			cell := ""
			if i < len(row) {
				cell = Truncate(row[i], widths[i])
			}
			cell = pad(cell, widths[i])
			if i == t.Status && i < len(row) {
				cell = style(StyleStatus(row[i]), cell)
			}
			cells[i] = cell
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		b.WriteByte('\n')
	}
	return b.String()
}

func pad(value string, width int) string {
	if w := runewidth.StringWidth(value); w < width {
		return value + strings.Repeat(" ", width-w)
	}
	return value
}

// Truncate shortens value to width display cells, marking the cut with "...".
func Truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
