// chat.go implements `dbchat chat`, the line-oriented front-end.
//
// Drives the same session.Session as the TUI, but runs every command
// synchronously: issue, wait under a spinner, apply, print what changed.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/chzyer/readline"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/DachengChen/dbchat/applog"
	"github.com/DachengChen/dbchat/backend"
	"github.com/DachengChen/dbchat/config"
	"github.com/DachengChen/dbchat/render"
	"github.com/DachengChen/dbchat/session"
	"github.com/DachengChen/dbchat/tui"
)

const chatHelp = `Connects the backend to one database and opens a prompt.
Anything you type is sent to the assistant. Dot-commands:

  .tables           refresh and list tables
  .describe <name>  ask about a table
  .query            show the generated query
  .run              execute the generated query
  .help             show this help
  .quit             exit`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a database from a plain prompt",
	Long:  chatHelp,
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	engine, creds, err := resolveTarget(engineName, dsn, true)
	if err != nil {
		return err
	}

	var r *repl
	tables := func(string) []string {
		if r == nil {
			return nil
		}
		return r.sess.Tables()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "dbchat> ",
		HistoryFile: filepath.Join(config.HomeDir(), "chat_history"),
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem(".tables"),
			readline.PcItem(".describe", readline.PcItemDynamic(tables)),
			readline.PcItem(".query"),
			readline.PcItem(".run"),
			readline.PcItem(".help"),
			readline.PcItem(".quit"),
		),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	creds, err = promptMissing(rl, creds)
	if err != nil {
		return err
	}

	b := tui.NewBackend(cfg)
	log := applog.Logger()
	con := console{out: cmd.OutOrStdout(), spin: true}

	ref, err := con.connect(session.NewConnector(b, log), engine, creds, describeBackend(b))
	if err != nil {
		return err
	}

	r = &repl{console: con, sess: session.New(b, ref, log)}
	r.start()

	rl.SetPrompt(fmt.Sprintf("dbchat(%s)> ", ref.DB))
	con.info().Println("Type a question, or .help for commands.")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !r.handle(line) {
			return nil
		}
	}
}

// describeBackend names where requests go, for connect hints.
func describeBackend(b session.Backend) string {
	if c, ok := b.(*backend.Client); ok {
		return c.BaseURL()
	}
	return "the demo backend"
}

// lineReader is the part of *readline.Instance used for prompting.
type lineReader interface {
	SetPrompt(prompt string)
	Readline() (string, error)
	ReadPassword(prompt string) ([]byte, error)
}

// promptMissing asks for every credential field the DSN left empty.
func promptMissing(rl lineReader, c session.Credentials) (session.Credentials, error) {
	fields := []struct {
		label  string
		value  *string
		secret bool
	}{
		{"Host", &c.Host, false},
		{"Port", &c.Port, false},
		{"User", &c.User, false},
		{"Password", &c.Password, true},
		{"Database", &c.Database, false},
	}
	for _, f := range fields {
		if *f.value != "" {
			continue
		}
		if f.secret {
			pw, err := rl.ReadPassword(f.label + ": ")
			if err != nil {
				return c, err
			}
			*f.value = string(pw)
			continue
		}
		rl.SetPrompt(f.label + ": ")
		v, err := rl.Readline()
		if err != nil {
			return c, err
		}
		*f.value = strings.TrimSpace(v)
	}
	return c, nil
}

// console writes REPL output to one writer. Spinners draw on the
// terminal and only when spin is set.
type console struct {
	out  io.Writer
	spin bool
}

func (c console) info() *pterm.PrefixPrinter    { return pterm.Info.WithWriter(c.out) }
func (c console) success() *pterm.PrefixPrinter { return pterm.Success.WithWriter(c.out) }
func (c console) warning() *pterm.PrefixPrinter { return pterm.Warning.WithWriter(c.out) }
func (c console) fail() *pterm.PrefixPrinter    { return pterm.Error.WithWriter(c.out) }

func (c console) box(title, body string) {
	pterm.DefaultBox.WithWriter(c.out).WithTitle(title).Println(body)
}

// wait runs cmd under a spinner and returns its message.
func (c console) wait(cmd tea.Cmd, label string) tea.Msg {
	if !c.spin {
		return cmd()
	}
	spinner, _ := pterm.DefaultSpinner.Start(label)
	msg := cmd()
	if spinner != nil {
		_ = spinner.Stop()
	}
	return msg
}

// connect submits one connect request. A failure is printed here and
// reported to cobra as errReported.
func (c console) connect(conn *session.Connector, engine session.EngineKind, creds session.Credentials, target string) (session.SessionRef, error) {
	cmd, err := conn.Submit(engine, creds)
	if err != nil {
		return session.SessionRef{}, err
	}

	msg := c.wait(cmd, "Connecting to "+engine.String()+"...")
	conn.Apply(msg)

	switch msg := msg.(type) {
	case session.ConnectedMsg:
		c.success().Println(render.Sanitize(msg.Message))
		return msg.Ref, nil
	case session.ConnectFailedMsg:
		c.fail().Println("Error: " + render.Sanitize(session.ErrorMessage(msg.Err)))
		if !backend.IsAPIError(msg.Err) {
			c.info().Printfln("Is the backend running at %s?", target)
		}
		return session.SessionRef{}, errReported
	}
	return session.SessionRef{}, fmt.Errorf("unexpected connect result %T", msg)
}

// repl prints what each applied message changed.
type repl struct {
	console
	sess *session.Session

	printedTurns int
	lastQuery    string
	lastResult   session.ResultArtifact
}

// start loads the table list and prints it.
func (r *repl) start() {
	r.run(r.sess.Start(), "Loading tables...")
	r.flush()
	r.printTables()
}

// run waits for cmd and applies its message.
func (r *repl) run(cmd tea.Cmd, label string) {
	if cmd == nil {
		return
	}
	r.sess.Apply(r.wait(cmd, label))
}

// handle processes one line and reports whether to keep going.
func (r *repl) handle(line string) bool {
	if !strings.HasPrefix(line, ".") {
		cmd, err := r.sess.Send(line)
		r.issue(cmd, err, "Sending...")
		return true
	}

	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return false
	case ".help":
		_, _ = fmt.Fprintln(r.out, chatHelp)
	case ".tables":
		r.run(r.sess.RefreshTables(), "Loading tables...")
		r.flush()
		r.printTables()
	case ".describe":
		if len(parts) < 2 {
			r.warning().Println("Usage: .describe <table>")
			return true
		}
		cmd, err := r.sess.SelectTable(strings.TrimSpace(line[len(parts[0]):]))
		r.issue(cmd, err, "Sending...")
	case ".query":
		if q, ok := r.sess.Query(); ok {
			r.box("Generated query", render.Sanitize(q))
		} else {
			r.info().Println("No generated query yet.")
		}
	case ".run":
		// Re-running prints the result even if it did not change.
		r.lastResult = session.ResultArtifact{}
		cmd, err := r.sess.Execute()
		r.issue(cmd, err, "Executing...")
	default:
		r.warning().Printfln("Unknown command: %s (type .help for commands)", parts[0])
	}
	return true
}

func (r *repl) issue(cmd tea.Cmd, err error, label string) {
	switch {
	case errors.Is(err, session.ErrEmptyUtterance):
		return
	case errors.Is(err, session.ErrNoQuery):
		r.info().Println("There is no generated query to execute yet.")
		return
	case err != nil:
		r.fail().Println(err.Error())
		return
	}
	// The user's own turn was echoed by readline.
	r.printedTurns = len(r.sess.Transcript())
	r.run(cmd, label)
	r.flush()
}

// flush prints new assistant turns, a changed query and a changed result.
func (r *repl) flush() {
	turns := r.sess.Transcript()
	for _, t := range turns[r.printedTurns:] {
		if t.Role == session.RoleAssistant {
			_, _ = fmt.Fprintln(r.out, pterm.FgGreen.Sprint("Assistant: ")+render.Message(t.Content))
		}
	}
	r.printedTurns = len(turns)

	if q, ok := r.sess.Query(); ok && q != r.lastQuery {
		r.lastQuery = q
		r.box("Generated query", render.Sanitize(q))
		r.info().Println("Type .run to execute it.")
	}

	res := r.sess.Result()
	if res.Kind == session.ResultNone || (res.Kind == r.lastResult.Kind && res.String() == r.lastResult.String()) {
		return
	}
	r.lastResult = res
	if res.Kind == session.ResultError {
		r.fail().Println(render.Sanitize(res.Err))
		return
	}
	_, _ = fmt.Fprintln(r.out, res.String())
}

func (r *repl) printTables() {
	tables := r.sess.Tables()
	if len(tables) == 0 {
		r.info().Println("No tables found.")
		return
	}
	items := make([]pterm.BulletListItem, 0, len(tables))
	for _, t := range tables {
		items = append(items, pterm.BulletListItem{Level: 0, Text: render.Sanitize(t)})
	}
	_ = pterm.DefaultBulletList.WithWriter(r.out).WithItems(items).Render()
}
