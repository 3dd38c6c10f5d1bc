package cli

import (
	"html"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

// Colour palette.
var (
	colourPrimary = lipgloss.Color("#7C3AED") // Purple
	colourMuted   = lipgloss.Color("#6C7086") // Medium gray
	colourMark    = lipgloss.Color("#F9E2AF") // Yellow
	colourError   = lipgloss.Color("#F38BA8") // Red
	colourSuccess = lipgloss.Color("#A6E3A1") // Green
	colourBorder  = lipgloss.Color("#45475A") // Border gray
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary)
	mutedStyle   = lipgloss.NewStyle().Foreground(colourMuted)
	markStyle    = lipgloss.NewStyle().Bold(true).Foreground(colourMark)
	errorStyle   = lipgloss.NewStyle().Foreground(colourError)
	successStyle = lipgloss.NewStyle().Foreground(colourSuccess)
)

// highlightSnippet turns a store snippet into terminal text: entities are
// unescaped and marked terms are styled.
func highlightSnippet(snippet string) string {
	var b strings.Builder
	for snippet != "" {
		i := strings.Index(snippet, domain.SnippetOpen)
		if i < 0 {
			b.WriteString(html.UnescapeString(snippet))
			break
		}
		b.WriteString(html.UnescapeString(snippet[:i]))
		snippet = snippet[i+len(domain.SnippetOpen):]

		j := strings.Index(snippet, domain.SnippetClose)
		if j < 0 {
			j = len(snippet)
		}
		b.WriteString(markStyle.Render(html.UnescapeString(snippet[:j])))
		snippet = snippet[min(j+len(domain.SnippetClose), len(snippet)):]
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// newTable returns a bordered table with styled headers.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colourBorder)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(colourPrimary)
			}
			return s
		}).
		Headers(headers...)
}
