package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/DachengChen/dbchat/render"
)

// Markdown renders assistant text for the terminal. Backend HTML is
// first converted to Markdown, then drawn by glamour. If glamour cannot
// be built for the style, text is shown sanitized but unstyled.
type Markdown struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

func NewMarkdown(style string, width int) *Markdown {
	m := &Markdown{style: style}
	m.SetWidth(width)
	return m
}

// SetWidth rebuilds the renderer when the wrap width changes.
func (m *Markdown) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == m.width && m.renderer != nil {
		return
	}
	m.width = width

	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if m.style == "" || m.style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(m.style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		m.renderer = nil
		return
	}
	m.renderer = r
}

// Render converts content to display text.
func (m *Markdown) Render(content string) string {
	md := render.Message(content)
	if m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}
