package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette for dark terminals; glamour picks its own for Markdown.
var (
	ColorPrimary   = lipgloss.Color("255") // White
	ColorSecondary = lipgloss.Color("240") // Dark Gray
	ColorAccent    = lipgloss.Color("39")  // Blue / Cyan
	ColorSuccess   = lipgloss.Color("42")  // Green
	ColorError     = lipgloss.Color("196") // Red
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorDim       = lipgloss.Color("240")

	ColorHighlightBg = lipgloss.Color("236")
)

var (
	StyleDimmed = lipgloss.NewStyle().Foreground(ColorDim)
	StyleBold   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSecondary)

	StyleTitle  = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).MarginBottom(1)
	StylePrompt = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)

	// Landing list and table sidebar
	StyleListItemActive = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Background(ColorHighlightBg).
				Bold(true)

	StyleSidebar = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(ColorSecondary).
			PaddingRight(1)

	// Credential form
	StyleInputFocused = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Bold(true)

	// Blocking alerts (connect failure / success)
	StyleAlert = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorError).
			Padding(1, 2)

	// Transcript
	StyleUser      = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	StyleAssistant = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)

	// Generated query panel
	StyleQuery = lipgloss.NewStyle().
			Foreground(ColorWarning).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(ColorSecondary).
			PaddingLeft(1)

	StyleStatusBar = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	StyleHelpKey = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StyleHelpDesc = lipgloss.NewStyle().
			Foreground(ColorDim)
)
