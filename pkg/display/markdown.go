package display

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Renderer formats a finished answer for the terminal.
type Renderer interface {
	Render(text string) string
}

// Markdown renders answers as terminal-styled markdown.
type Markdown struct {
	r *glamour.TermRenderer
}

// NewMarkdown creates a Markdown renderer wrapping at width columns
// (100 when width is not positive).
func NewMarkdown(width int) (*Markdown, error) {
	if width <= 0 {
		width = 100
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}

	return &Markdown{r: r}, nil
}

// Render converts markdown text to terminal output. On any rendering error
// the text is returned unchanged.
func (m *Markdown) Render(text string) string {
	if m == nil || m.r == nil {
		return text
	}

	out, err := m.r.Render(text)
	if err != nil {
		return text
	}

	return strings.Trim(out, "\n")
}
