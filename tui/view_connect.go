// view_connect.go is the credential form for the chosen engine.
//
// Five fields: host, port, user, password, database. All are required.
// Tab / Shift+Tab (or ↑/↓) move between fields, Enter connects, Esc
// goes back to engine selection.
//
// The form never writes credentials anywhere. They are handed to the
// session.Connector once per submit and the typed values stay in the
// inputs so a failed attempt can be corrected.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DachengChen/dbchat/session"
)

const (
	fieldHost = iota
	fieldPort
	fieldUser
	fieldPassword
	fieldDatabase
	fieldCount
)

var fieldLabels = [fieldCount]string{
	fieldHost:     "Host",
	fieldPort:     "Port",
	fieldUser:     "User",
	fieldPassword: "Password",
	fieldDatabase: "Database",
}

// ConnectView is the credential form.
type ConnectView struct {
	engine    session.EngineKind
	connector *session.Connector
	inputs    [fieldCount]textinput.Model
	focus     int
	spinner   spinner.Model

	formErr string // validation problem, shown inline
	alert   string // backend failure, blocks until dismissed
	width   int
	height  int
}

func NewConnectView(engine session.EngineKind, connector *session.Connector, prefill session.Credentials) *ConnectView {
	v := &ConnectView{
		engine:    engine,
		connector: connector,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
	}

	values := [fieldCount]string{
		fieldHost:     prefill.Host,
		fieldPort:     prefill.Port,
		fieldUser:     prefill.User,
		fieldPassword: prefill.Password,
		fieldDatabase: prefill.Database,
	}
	for i := range v.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Width = 40
		ti.SetValue(values[i])
		if i == fieldPassword {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		v.inputs[i] = ti
	}
	v.inputs[fieldHost].Placeholder = "localhost"
	v.inputs[fieldPort].Placeholder = defaultPort(engine)
	v.inputs[v.focus].Focus()
	return v
}

func defaultPort(engine session.EngineKind) string {
	switch engine {
	case session.PostgreSQL:
		return "5432"
	case session.MySQL:
		return "3306"
	case session.MongoDB:
		return "27017"
	}
	return ""
}

func (v *ConnectView) Name() string { return "Connect to " + v.engine.String() }

func (v *ConnectView) Engine() session.EngineKind { return v.engine }

func (v *ConnectView) SetSize(width, height int) {
	v.width = width
	v.height = height
	w := width - 16
	if w > 60 {
		w = 60
	}
	if w < 10 {
		w = 10
	}
	for i := range v.inputs {
		v.inputs[i].Width = w
	}
}

func (v *ConnectView) ShortHelp() []KeyBinding {
	if v.alert != "" {
		return []KeyBinding{{Key: "Enter/Esc", Desc: "dismiss"}}
	}
	return []KeyBinding{
		{Key: "Tab", Desc: "next field"},
		{Key: "Enter", Desc: "connect"},
		{Key: "Esc", Desc: "back"},
	}
}

func (v *ConnectView) Init() tea.Cmd { return textinput.Blink }

// Credentials returns the current form values.
func (v *ConnectView) Credentials() session.Credentials {
	return session.Credentials{
		Host:     v.inputs[fieldHost].Value(),
		Port:     v.inputs[fieldPort].Value(),
		User:     v.inputs[fieldUser].Value(),
		Password: v.inputs[fieldPassword].Value(),
		Database: v.inputs[fieldDatabase].Value(),
	}
}

// Alert returns the blocking alert text, if one is shown.
func (v *ConnectView) Alert() string { return v.alert }

func (v *ConnectView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case session.ConnectedMsg:
		v.connector.Apply(msg)
		return v, nil

	case session.ConnectFailedMsg:
		v.connector.Apply(msg)
		v.alert = "Error: " + session.ErrorMessage(msg.Err)
		return v, nil

	case spinner.TickMsg:
		if !v.connector.Busy() {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case tea.KeyMsg:
		return v.handleKey(msg)
	}

	var cmd tea.Cmd
	v.inputs[v.focus], cmd = v.inputs[v.focus].Update(msg)
	return v, cmd
}

func (v *ConnectView) handleKey(msg tea.KeyMsg) (View, tea.Cmd) {
	if v.alert != "" {
		switch msg.String() {
		case "enter", "esc", " ":
			v.alert = ""
		}
		return v, nil
	}
	if v.connector.Busy() {
		return v, nil
	}

	switch msg.String() {
	case "esc":
		return v, func() tea.Msg { return BackToLandingMsg{} }
	case "tab", "down":
		v.setFocus((v.focus + 1) % fieldCount)
		return v, nil
	case "shift+tab", "up":
		v.setFocus((v.focus + fieldCount - 1) % fieldCount)
		return v, nil
	case "enter":
		return v, v.submit()
	}

	var cmd tea.Cmd
	v.inputs[v.focus], cmd = v.inputs[v.focus].Update(msg)
	v.formErr = ""
	return v, cmd
}

func (v *ConnectView) setFocus(i int) {
	v.inputs[v.focus].Blur()
	v.focus = i
	v.inputs[v.focus].Focus()
}

func (v *ConnectView) submit() tea.Cmd {
	cmd, err := v.connector.Submit(v.engine, v.Credentials())
	if err != nil {
		v.formErr = err.Error()
		return nil
	}
	v.formErr = ""
	return tea.Batch(cmd, v.spinner.Tick)
}

func (v *ConnectView) View() string {
	lines := []string{StyleTitle.Render("Enter " + v.engine.String() + " credentials")}

	for i := range v.inputs {
		label := lipgloss.NewStyle().Width(10).Render(fieldLabels[i])
		if i == v.focus {
			label = StyleInputFocused.Width(10).Render(fieldLabels[i])
		}
		lines = append(lines, label+" "+v.inputs[i].View())
	}
	lines = append(lines, "")

	switch {
	case v.connector.Busy():
		lines = append(lines, v.spinner.View()+" Connecting...")
	case v.formErr != "":
		lines = append(lines, StyleError.Render(v.formErr))
	default:
		lines = append(lines, StyleDimmed.Render("Press Enter to connect."))
	}

	form := strings.Join(lines, "\n")
	if v.alert == "" {
		return form
	}
	return lipgloss.JoinVertical(lipgloss.Left, form, "", StyleAlert.Render(StyleError.Render(v.alert)))
}
