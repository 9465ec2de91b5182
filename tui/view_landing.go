// view_landing.go is the engine selection screen.
//
// First screen shown when dbchat starts without --engine. Arrow keys
// (or j/k) move, Enter picks, 1-4 pick directly.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DachengChen/dbchat/session"
)

var engineBlurbs = map[session.EngineKind]string{
	session.PostgreSQL: "relational, host/port server",
	session.MongoDB:    "document store",
	session.MySQL:      "relational, host/port server",
	session.SQLite:     "single file database",
}

// LandingView lets the user pick a database engine.
type LandingView struct {
	cursor int
	width  int
	height int
}

func NewLandingView() *LandingView {
	return &LandingView{}
}

func (v *LandingView) Name() string { return "Select database" }

func (v *LandingView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

func (v *LandingView) ShortHelp() []KeyBinding {
	return []KeyBinding{
		{Key: "↑/↓", Desc: "move"},
		{Key: "Enter", Desc: "select"},
		{Key: "1-4", Desc: "quick pick"},
	}
}

func (v *LandingView) Init() tea.Cmd { return nil }

// Selected returns the engine under the cursor.
func (v *LandingView) Selected() session.EngineKind {
	return session.Engines[v.cursor]
}

func (v *LandingView) Update(msg tea.Msg) (View, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return v, nil
	}

	switch key.String() {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
	case "down", "j":
		if v.cursor < len(session.Engines)-1 {
			v.cursor++
		}
	case "enter":
		return v, choose(v.Selected())
	case "1", "2", "3", "4":
		idx := int(key.String()[0] - '1')
		if idx < len(session.Engines) {
			v.cursor = idx
			return v, choose(v.Selected())
		}
	}
	return v, nil
}

func choose(engine session.EngineKind) tea.Cmd {
	return func() tea.Msg { return EngineChosenMsg{Engine: engine} }
}

func (v *LandingView) View() string {
	lines := []string{
		StyleTitle.Render("Which database do you want to talk to?"),
	}
	for i, e := range session.Engines {
		label := fmt.Sprintf(" %d. %-11s %s ", i+1, e.String(), StyleDimmed.Render(engineBlurbs[e]))
		if i == v.cursor {
			lines = append(lines, StyleListItemActive.Render("▸"+label))
		} else {
			lines = append(lines, " "+label)
		}
	}
	lines = append(lines, "", StyleDimmed.Render("Queries are generated by the backend and only run when you ask."))
	return strings.Join(lines, "\n")
}
