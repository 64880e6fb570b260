package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders record text through glamour. The renderer is
// rebuilt when the pane width changes so word wrap tracks the layout.
type MarkdownRenderer struct {
	style string
	width int
	r     *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer for the named glamour style
// ("dark" or "light").
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	if style != "light" {
		style = "dark"
	}
	return &MarkdownRenderer{style: style}
}

// SetWidth updates the word-wrap width, rebuilding the renderer if needed.
func (m *MarkdownRenderer) SetWidth(width int) {
	if width < 1 || width == m.width {
		return
	}
	m.width = width
	m.r, _ = glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
}

// Render renders markdown content to styled terminal output. On any renderer
// failure the content comes back unchanged rather than erroring mid-session.
func (m *MarkdownRenderer) Render(content string) string {
	if content == "" || m.r == nil {
		return content
	}
	rendered, err := m.r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}

// RenderMarkdown renders with a one-off renderer at the given width. Use it
// where the width differs from the pane's, like comparison columns.
func RenderMarkdown(content, style string, width int) string {
	if content == "" {
		return ""
	}
	if style != "light" {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}
