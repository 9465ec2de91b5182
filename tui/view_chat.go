// view_chat.go is the conversation screen for one connected database.
//
// Layout:
//
//	┌ Tables ┐┌ transcript (scrolls, follows newest) ┐
//	│ users  ││ You / Assistant turns                 │
//	│ orders ││ Generated query  (Ctrl+E to run)      │
//	│        ││ Result grid                           │
//	│        ││ busy / status line                    │
//	│        ││ > input                               │
//
// Tab cycles focus between the input, the table list and the result
// grid. All state lives in the session; this view only turns keys into
// session calls and redraws after every applied message.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/DachengChen/dbchat/render"
	"github.com/DachengChen/dbchat/session"
)

type chatFocus int

const (
	focusInput chatFocus = iota
	focusTables
	focusResult
)

const sidebarWidth = 22

// ChatView drives a session.Session.
type ChatView struct {
	sess *session.Session
	md   *Markdown

	input      textinput.Model
	transcript viewport.Model
	result     viewport.Model
	spinner    spinner.Model
	spinning   bool

	focus       chatFocus
	tableCursor int
	notice      string // connect acknowledgement, cleared by the next key
	status      string

	width    int
	height   int
	mainW    int
	showSide bool
}

func NewChatView(sess *session.Session, md *Markdown, notice string) *ChatView {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "Ask about your data..."
	ti.Focus()

	v := &ChatView{
		sess:       sess,
		md:         md,
		input:      ti,
		transcript: viewport.New(80, 10),
		result:     viewport.New(80, 5),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		notice:     render.Sanitize(notice),
	}
	v.refresh()
	return v
}

func (v *ChatView) Name() string { return "Chat · " + v.sess.DB() }

// Session returns the session this view drives.
func (v *ChatView) Session() *session.Session { return v.sess }

func (v *ChatView) SetSize(width, height int) {
	v.width = width
	v.height = height

	v.showSide = width >= 60
	v.mainW = width
	if v.showSide {
		v.mainW = width - sidebarWidth - 2
	}
	v.md.SetWidth(v.mainW - 2)
	v.input.Width = v.mainW - 3

	resultH := height / 3
	if resultH < 3 {
		resultH = 3
	}
	// query panel (label + 3) + result label + busy line + input line
	transcriptH := height - resultH - 7
	if transcriptH < 3 {
		transcriptH = 3
	}
	v.transcript.Width = v.mainW
	v.transcript.Height = transcriptH
	v.result.Width = v.mainW
	v.result.Height = resultH
	v.refresh()
}

func (v *ChatView) ShortHelp() []KeyBinding {
	keys := []KeyBinding{{Key: "Enter", Desc: "send"}}
	if v.focus == focusTables {
		keys = []KeyBinding{{Key: "Enter", Desc: "describe table"}}
	}
	if v.sess.CanExecute() {
		keys = append(keys, KeyBinding{Key: "Ctrl+E", Desc: "execute query"})
	}
	return append(keys,
		KeyBinding{Key: "Tab", Desc: "focus"},
		KeyBinding{Key: "Ctrl+R", Desc: "refresh tables"},
		KeyBinding{Key: "Ctrl+D", Desc: "disconnect"},
	)
}

func (v *ChatView) Init() tea.Cmd {
	start := v.sess.Start()
	if start == nil {
		return textinput.Blink
	}
	v.refresh()
	return tea.Batch(start, textinput.Blink, v.startSpinner())
}

func (v *ChatView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case session.TablesMsg, session.ChatReplyMsg, session.QueryResultMsg:
		if v.sess.Apply(msg) {
			if n := len(v.sess.Tables()); v.tableCursor >= n {
				v.tableCursor = max(n-1, 0)
			}
			v.refresh()
		}
		return v, nil

	case spinner.TickMsg:
		if !v.anyBusy() {
			v.spinning = false
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case tea.KeyMsg:
		return v.handleKey(msg)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *ChatView) handleKey(msg tea.KeyMsg) (View, tea.Cmd) {
	v.notice = ""
	v.status = ""

	switch msg.String() {
	case "ctrl+d":
		return v, func() tea.Msg { return DisconnectMsg{} }
	case "tab":
		v.cycleFocus()
		return v, nil
	case "ctrl+e":
		return v, v.execute()
	case "ctrl+r":
		return v, v.refreshTables()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd
	}

	switch v.focus {
	case focusTables:
		return v, v.handleTableKey(msg)
	case focusResult:
		var cmd tea.Cmd
		v.result, cmd = v.result.Update(msg)
		return v, cmd
	}

	if msg.String() == "enter" {
		return v, v.send(v.input.Value())
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *ChatView) handleTableKey(msg tea.KeyMsg) tea.Cmd {
	tables := v.sess.Tables()
	switch msg.String() {
	case "up", "k":
		if v.tableCursor > 0 {
			v.tableCursor--
		}
	case "down", "j":
		if v.tableCursor < len(tables)-1 {
			v.tableCursor++
		}
	case "enter":
		if len(tables) == 0 {
			return nil
		}
		cmd, err := v.sess.SelectTable(tables[v.tableCursor])
		return v.issued(cmd, err)
	}
	return nil
}

func (v *ChatView) cycleFocus() {
	v.focus = (v.focus + 1) % 3
	if v.focus == focusTables && !v.showSide {
		v.focus = focusResult
	}
	if v.focus == focusInput {
		v.input.Focus()
	} else {
		v.input.Blur()
	}
}

// send handles a line typed into the input. ".tables" and ".run" are
// shortcuts for Ctrl+R and Ctrl+E.
func (v *ChatView) send(text string) tea.Cmd {
	switch strings.TrimSpace(text) {
	case ".tables":
		v.input.Reset()
		return v.refreshTables()
	case ".run":
		v.input.Reset()
		return v.execute()
	}

	cmd, err := v.sess.Send(text)
	if err == nil {
		v.input.Reset()
	}
	return v.issued(cmd, err)
}

func (v *ChatView) execute() tea.Cmd {
	cmd, err := v.sess.Execute()
	return v.issued(cmd, err)
}

func (v *ChatView) refreshTables() tea.Cmd {
	cmd := v.sess.RefreshTables()
	if cmd == nil {
		return nil
	}
	v.refresh()
	return tea.Batch(cmd, v.startSpinner())
}

// issued redraws after a session call and reports local refusals.
func (v *ChatView) issued(cmd tea.Cmd, err error) tea.Cmd {
	switch {
	case errors.Is(err, session.ErrEmptyUtterance):
		return nil
	case errors.Is(err, session.ErrBusy):
		v.status = "Still waiting for the previous request."
		return nil
	case errors.Is(err, session.ErrNoQuery):
		v.status = "There is no generated query to execute yet."
		return nil
	case err != nil:
		v.status = err.Error()
		return nil
	}
	v.refresh()
	return tea.Batch(cmd, v.startSpinner())
}

func (v *ChatView) startSpinner() tea.Cmd {
	if v.spinning {
		return nil
	}
	v.spinning = true
	return v.spinner.Tick
}

func (v *ChatView) anyBusy() bool {
	return v.sess.Busy(session.OpChat) || v.sess.Busy(session.OpExecute) || v.sess.Busy(session.OpTables)
}

// refresh redraws both viewports and scrolls the transcript to the
// newest content.
func (v *ChatView) refresh() {
	v.transcript.SetContent(v.renderTranscript())
	v.transcript.GotoBottom()
	v.result.SetContent(v.renderResult())
}

func (v *ChatView) renderTranscript() string {
	turns := v.sess.Transcript()
	if len(turns) == 0 {
		return StyleDimmed.Render(fmt.Sprintf(
			"Ask a question about your %s database, or pick a table on the left.", v.sess.DB()))
	}

	wrap := lipgloss.NewStyle().Width(max(v.mainW-2, 10))
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch t.Role {
		case session.RoleUser:
			b.WriteString(StyleUser.Render("You"))
			b.WriteString("\n")
			b.WriteString(wrap.Render(render.Sanitize(t.Content)))
		default:
			b.WriteString(StyleAssistant.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(v.md.Render(t.Content))
		}
	}
	return b.String()
}

func (v *ChatView) renderResult() string {
	res := v.sess.Result()
	switch res.Kind {
	case session.ResultNone:
		return StyleDimmed.Render("Run the generated query to see results here.")
	case session.ResultError:
		return StyleError.Render(render.Sanitize(res.String()))
	}
	return res.String()
}

func (v *ChatView) renderQuery() string {
	q, ok := v.sess.Query()
	if !ok {
		return StyleDimmed.Render("No query yet.")
	}
	lines := strings.Split(render.Sanitize(q), "\n")
	if len(lines) > 3 {
		lines = append(lines[:2], "…")
	}
	return StyleQuery.Width(max(v.mainW-2, 10)).Render(strings.Join(lines, "\n"))
}

func (v *ChatView) renderBusy() string {
	var parts []string
	if v.sess.Busy(session.OpChat) {
		parts = append(parts, "Sending...")
	}
	if v.sess.Busy(session.OpExecute) {
		parts = append(parts, "Executing...")
	}
	if v.sess.Busy(session.OpTables) {
		parts = append(parts, "Loading tables...")
	}
	switch {
	case len(parts) > 0:
		return v.spinner.View() + " " + strings.Join(parts, "  ")
	case v.notice != "":
		return StyleSuccess.Render("✓ " + v.notice)
	case v.status != "":
		return StyleWarning.Render(v.status)
	}
	return ""
}

// sidebarName fits a table name into the sidebar next to its two-cell
// marker, cutting on display width rather than bytes.
func sidebarName(table string) string {
	return ansi.Truncate(render.Sanitize(table), sidebarWidth-3, "…")
}

func (v *ChatView) renderSidebar() string {
	lines := []string{StylePrompt.Render("Tables")}
	tables := v.sess.Tables()
	if len(tables) == 0 {
		if v.sess.Busy(session.OpTables) {
			lines = append(lines, StyleDimmed.Render("loading..."))
		} else {
			lines = append(lines, StyleDimmed.Render("(none)"))
		}
	}
	for i, t := range tables {
		name := sidebarName(t)
		if v.focus == focusTables && i == v.tableCursor {
			lines = append(lines, StyleListItemActive.Render("▸ "+name))
		} else {
			lines = append(lines, "  "+name)
		}
	}
	return StyleSidebar.Width(sidebarWidth).Height(max(v.height, 1)).Render(strings.Join(lines, "\n"))
}

func (v *ChatView) View() string {
	queryLabel := StylePrompt.Render("Generated query")
	if v.sess.CanExecute() {
		queryLabel += StyleDimmed.Render("  (Ctrl+E to execute)")
	}
	resultLabel := StylePrompt.Render("Result")
	if v.focus == focusResult {
		resultLabel += StyleDimmed.Render("  (↑/↓ to scroll)")
	}

	prompt := StylePrompt.Render("> ")
	if v.focus != focusInput {
		prompt = StyleDimmed.Render("> ")
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		v.transcript.View(),
		queryLabel,
		v.renderQuery(),
		resultLabel,
		v.result.View(),
		v.renderBusy(),
		prompt+v.input.View(),
	)
	if !v.showSide {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, v.renderSidebar(), " ", main)
}
