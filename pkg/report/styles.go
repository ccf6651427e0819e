package report

import "github.com/charmbracelet/lipgloss"

var (
	colorHeader = lipgloss.Color("#fe8019")
	colorTag    = lipgloss.Color("#d3869b")
	colorDue    = lipgloss.Color("#fabd2f")
	colorDim    = lipgloss.Color("#928374")
)

type styles struct {
	header lipgloss.Style
	bullet lipgloss.Style
	name   lipgloss.Style
	tag    lipgloss.Style
	due    lipgloss.Style
	empty  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, plain bool) styles {
	if plain {
		s := r.NewStyle()
		return styles{header: s, bullet: s, name: s, tag: s, due: s, empty: s}
	}
	return styles{
		header: r.NewStyle().Foreground(colorHeader).Bold(true),
		bullet: r.NewStyle().Foreground(colorDim),
		name:   r.NewStyle().Bold(true),
		tag:    r.NewStyle().Foreground(colorTag),
		due:    r.NewStyle().Foreground(colorDue),
		empty:  r.NewStyle().Foreground(colorDim).Italic(true),
	}
}
