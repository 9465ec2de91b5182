// app.go is the top-level Bubble Tea model that orchestrates all views.
//
// Flow:
//  1. LandingView: pick an engine (skipped when --engine is given)
//  2. ConnectView: enter credentials, connect through the backend
//  3. ChatView: converse, browse tables, execute generated queries
//  4. Ctrl+D in the chat returns to step 1 and drops the session
//
// Key design decisions:
//   - One phase at a time; the App owns the transitions and every view
//     only emits messages asking for one.
//   - Backend results are routed to the active view. A reply for a
//     session that was disconnected finds no view to apply to and is
//     dropped.
//   - F1 toggles a help overlay, Ctrl+C quits from anywhere.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/DachengChen/dbchat/applog"
	"github.com/DachengChen/dbchat/session"
)

// AppPhase is the screen currently shown.
type AppPhase int

const (
	PhaseLanding AppPhase = iota
	PhaseConnect
	PhaseChat
)

func (p AppPhase) String() string {
	switch p {
	case PhaseLanding:
		return "landing"
	case PhaseConnect:
		return "connect"
	case PhaseChat:
		return "chat"
	}
	return fmt.Sprintf("AppPhase(%d)", int(p))
}

// Options configure a new App.
type Options struct {
	Version    string
	BackendURL string
	Demo       bool
	Style      string // glamour style

	// Engine skips the landing screen when set.
	Engine session.EngineKind
	// Prefill seeds the credential form for Engine. It is not kept
	// after the form is built.
	Prefill session.Credentials
}

// App is the root Bubble Tea model.
type App struct {
	opts      Options
	backend   session.Backend
	connector *session.Connector
	log       zerolog.Logger

	phase   AppPhase
	landing *LandingView
	connect *ConnectView
	chat    *ChatView

	width    int
	height   int
	showHelp bool
}

// NewApp creates the application. With opts.Engine set it starts on
// the credential form, otherwise on engine selection.
func NewApp(backend session.Backend, log zerolog.Logger, opts Options) *App {
	a := &App{
		opts:      opts,
		backend:   backend,
		connector: session.NewConnector(backend, log),
		log:       log,
		phase:     PhaseLanding,
		landing:   NewLandingView(),
	}
	if opts.Engine.Valid() {
		a.openConnect(opts.Engine, opts.Prefill)
	}
	a.opts.Prefill = session.Credentials{}
	return a
}

// Phase returns the active phase.
func (a *App) Phase() AppPhase { return a.phase }

func (a *App) active() View {
	switch a.phase {
	case PhaseConnect:
		return a.connect
	case PhaseChat:
		return a.chat
	}
	return a.landing
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.active().Init()
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "f1":
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp {
			if msg.String() == "esc" {
				a.showHelp = false
			}
			return a, nil
		}

	case EngineChosenMsg:
		a.openConnect(msg.Engine, session.Credentials{})
		return a, a.connect.Init()

	case BackToLandingMsg:
		a.phase = PhaseLanding
		a.connect = nil
		return a, nil

	case session.ConnectedMsg:
		if a.connect != nil {
			a.connect.Update(msg)
		}
		return a, a.openChat(msg)

	case session.ConnectFailedMsg:
		applog.Event("connect", "%s failed: %s", msg.Engine, session.ErrorMessage(msg.Err))

	case DisconnectMsg:
		a.disconnect()
		return a, nil
	}

	updated, cmd := a.active().Update(msg)
	a.setActive(updated)
	return a, cmd
}

func (a *App) setActive(v View) {
	switch v := v.(type) {
	case *LandingView:
		a.landing = v
	case *ConnectView:
		a.connect = v
	case *ChatView:
		a.chat = v
	}
}

func (a *App) openConnect(engine session.EngineKind, prefill session.Credentials) {
	a.connect = NewConnectView(engine, a.connector, prefill)
	a.phase = PhaseConnect
	a.resize()
}

func (a *App) openChat(msg session.ConnectedMsg) tea.Cmd {
	applog.Event("connect", "connected to %s", msg.Ref.DB)
	sess := session.New(a.backend, msg.Ref, a.log)
	md := NewMarkdown(a.opts.Style, 80)
	a.chat = NewChatView(sess, md, msg.Message)
	a.connect = nil
	a.phase = PhaseChat
	a.resize()
	return a.chat.Init()
}

func (a *App) disconnect() {
	if a.chat != nil {
		applog.Event("connect", "disconnected from %s", a.chat.Session().DB())
	}
	a.chat = nil
	a.phase = PhaseLanding
}

// resize passes the content area (inside header, border and help bar)
// to the active view.
func (a *App) resize() {
	if a.width == 0 {
		return
	}
	a.active().SetSize(a.width-4, a.height-4)
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "loading..."
	}

	var content string
	if a.showHelp {
		content = a.renderHelp()
	} else {
		content = lipgloss.JoinVertical(lipgloss.Left,
			StyleBold.Render(a.active().Name()),
			a.active().View(),
		)
	}

	frameHeight := a.height - 4
	if frameHeight < 0 {
		frameHeight = 0
	}
	frame := StyleBorder.
		Width(a.width - 2).
		Height(frameHeight).
		Render(content)

	return a.renderHeader() + "\n" + frame + "\n" + a.renderHelpBar()
}

// renderHeader draws logo, version and the active database.
func (a *App) renderHeader() string {
	left := StyleBold.Render("dbchat") + StyleDimmed.Render(" v"+a.opts.Version)

	if a.phase == PhaseChat && a.chat != nil {
		left += StyleSuccess.Render(fmt.Sprintf("  ⚡ %s", a.chat.Session().DB()))
	}

	target := a.opts.BackendURL
	if a.opts.Demo {
		target = "demo backend"
	}
	right := StyleDimmed.Render(target)

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return lipgloss.NewStyle().Width(a.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (a *App) renderHelpBar() string {
	items := append(a.active().ShortHelp(),
		KeyBinding{Key: "F1", Desc: "help"},
		KeyBinding{Key: "Ctrl+C", Desc: "quit"},
	)
	parts := make([]string, 0, len(items))
	for _, h := range items {
		parts = append(parts, StyleHelpKey.Render(h.Key)+" "+StyleHelpDesc.Render(h.Desc))
	}
	return StyleStatusBar.Width(a.width).Padding(0, 1).Render(strings.Join(parts, StyleDimmed.Render("  │  ")))
}

func (a *App) renderHelp() string {
	help := []string{
		StyleTitle.Render("dbchat keyboard shortcuts"),
		StyleHelpKey.Render("Enter") + "            Send message / pick / connect",
		StyleHelpKey.Render("Tab") + "              Next field / switch chat focus",
		StyleHelpKey.Render("Ctrl+E") + "           Execute the generated query",
		StyleHelpKey.Render("Ctrl+R") + "           Refresh the table list",
		StyleHelpKey.Render("PgUp/PgDn") + "        Scroll the transcript",
		StyleHelpKey.Render("Ctrl+D") + "           Disconnect",
		StyleHelpKey.Render("Esc") + "              Back / dismiss alert",
		StyleHelpKey.Render("F1") + "               Toggle this help",
		StyleHelpKey.Render("Ctrl+C") + "           Quit",
		"",
		StyleTitle.Render("Chat commands"),
		StyleHelpKey.Render(".tables") + "          Refresh the table list",
		StyleHelpKey.Render(".run") + "             Execute the generated query",
		"",
		StyleDimmed.Render("Press F1 or Esc to close"),
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(help, "\n"))
}
