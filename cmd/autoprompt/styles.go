package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// styles holds the REPL's terminal styles, bound to one output.
type styles struct {
	prompt lipgloss.Style // "You: "
	answer lipgloss.Style // "AI: "
	banner lipgloss.Style
	dim    lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
}

// newStyles builds the styles for w. With noColor every style renders
// plain text.
func newStyles(w io.Writer, noColor bool) styles {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}

	return styles{
		prompt: r.NewStyle().Bold(true).Foreground(lipgloss.Color("4")), // blue
		answer: r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")), // cyan
		banner: r.NewStyle().Bold(true),
		dim:    r.NewStyle().Foreground(lipgloss.Color("8")), // gray
		err:    r.NewStyle().Foreground(lipgloss.Color("1")), // red
		warn:   r.NewStyle().Foreground(lipgloss.Color("3")), // yellow
	}
}
