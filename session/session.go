package session

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OpClass is the unit of the busy gate.
type OpClass int

const (
	OpTables OpClass = iota
	OpChat
	OpExecute
)

func (o OpClass) String() string {
	switch o {
	case OpTables:
		return "tables"
	case OpChat:
		return "chat"
	case OpExecute:
		return "execute"
	}
	return fmt.Sprintf("OpClass(%d)", int(o))
}

// TablePrompt is the utterance sent when a table shortcut is selected.
const TablePrompt = "Show information about %s table in %s database."

// Session is the state of one chat view bound to one database.
type Session struct {
	id      uuid.UUID
	ref     SessionRef
	backend Backend
	log     zerolog.Logger

	transcript Transcript
	tables     []string
	query      string
	result     ResultArtifact

	busy    map[OpClass]bool
	started bool

	// issued is the last ticket handed out to a producer of the result
	// artifact; applied is the ticket of the artifact currently held.
	issued  uint64
	applied uint64
}

// New creates a session for ref. Call Start to begin schema discovery.
func New(backend Backend, ref SessionRef, log zerolog.Logger) *Session {
	id := uuid.New()
	return &Session{
		id:      id,
		ref:     ref,
		backend: backend,
		log:     log.With().Str("session", id.String()).Str("db", ref.DB).Logger(),
		busy:    make(map[OpClass]bool),
	}
}

// ID identifies the session in logs and messages.
func (s *Session) ID() uuid.UUID { return s.id }

// DB returns the active database identifier.
func (s *Session) DB() string { return s.ref.DB }

// Engine returns the engine of the session.
func (s *Session) Engine() EngineKind { return s.ref.Engine }

// Transcript returns a snapshot of the conversation.
func (s *Session) Transcript() []ChatTurn { return s.transcript.All() }

// Tables returns the table list fetched for this session.
func (s *Session) Tables() []string {
	out := make([]string, len(s.tables))
	copy(out, s.tables)
	return out
}

// Query returns the current generated query, if any.
func (s *Session) Query() (string, bool) { return s.query, s.query != "" }

// Result returns the current result artifact.
func (s *Session) Result() ResultArtifact { return s.result }

// Busy reports whether an operation of class op is in flight.
func (s *Session) Busy(op OpClass) bool { return s.busy[op] }

// CanExecute reports whether the execute action should be offered.
func (s *Session) CanExecute() bool { return s.query != "" && !s.busy[OpExecute] }

// Start fetches the table list. Only the first call does anything.
func (s *Session) Start() tea.Cmd {
	if s.started {
		return nil
	}
	s.started = true
	if s.ref.DB == "" {
		s.log.Warn().Msg("database identifier is not set, skipping table fetch")
		return nil
	}
	return s.fetchTables()
}

// RefreshTables re-fetches the table list unless a fetch is running.
func (s *Session) RefreshTables() tea.Cmd {
	if s.ref.DB == "" || s.busy[OpTables] {
		return nil
	}
	return s.fetchTables()
}

func (s *Session) fetchTables() tea.Cmd {
	s.busy[OpTables] = true
	id, db, backend := s.id, s.ref.DB, s.backend
	s.log.Debug().Str("op", OpTables.String()).Msg("fetching tables")

	return func() tea.Msg {
		tables, err := backend.ListTables(context.Background(), db)
		return TablesMsg{Session: id, Tables: tables, Err: err}
	}
}

// Send appends utterance as a user turn and returns the command that
// delivers it to the backend. Blank input and sends while a chat turn
// is in flight are rejected without touching the transcript.
func (s *Session) Send(utterance string) (tea.Cmd, error) {
	if strings.TrimSpace(utterance) == "" {
		return nil, ErrEmptyUtterance
	}
	if s.busy[OpChat] {
		return nil, ErrBusy
	}

	s.transcript.Append(ChatTurn{Role: RoleUser, Content: utterance})
	s.busy[OpChat] = true
	ticket := s.nextTicket()
	id, db, backend := s.id, s.ref.DB, s.backend
	s.log.Debug().Str("op", OpChat.String()).Uint64("ticket", ticket).Msg("sending chat turn")

	return func() tea.Msg {
		reply, err := backend.Chat(context.Background(), utterance, db)
		return ChatReplyMsg{Session: id, Ticket: ticket, Reply: reply, Err: err}
	}, nil
}

// SelectTable sends the fixed table prompt as if the user typed it.
func (s *Session) SelectTable(table string) (tea.Cmd, error) {
	return s.Send(fmt.Sprintf(TablePrompt, table, s.ref.DB))
}

// Execute runs the current generated query.
func (s *Session) Execute() (tea.Cmd, error) {
	if s.query == "" {
		return nil, ErrNoQuery
	}
	if s.busy[OpExecute] {
		return nil, ErrBusy
	}

	s.busy[OpExecute] = true
	ticket := s.nextTicket()
	id, db, query, backend := s.id, s.ref.DB, s.query, s.backend
	s.log.Debug().Str("op", OpExecute.String()).Uint64("ticket", ticket).Msg("executing query")

	return func() tea.Msg {
		rs, err := backend.ExecuteQuery(context.Background(), query, db)
		return QueryResultMsg{Session: id, Ticket: ticket, Result: rs, Err: err}
	}, nil
}

// Apply folds a command result into the session. It reports whether
// msg belonged to this session.
func (s *Session) Apply(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case TablesMsg:
		if msg.Session != s.id {
			return false
		}
		s.applyTables(msg)
	case ChatReplyMsg:
		if msg.Session != s.id {
			return false
		}
		s.applyChat(msg)
	case QueryResultMsg:
		if msg.Session != s.id {
			return false
		}
		s.applyQueryResult(msg)
	default:
		return false
	}
	return true
}

func (s *Session) applyTables(msg TablesMsg) {
	s.busy[OpTables] = false
	if msg.Err != nil {
		s.log.Error().Err(msg.Err).Str("op", OpTables.String()).Msg("table fetch failed")
		s.transcript.Append(ChatTurn{
			Role:    RoleAssistant,
			Content: "Error fetching tables: " + ErrorMessage(msg.Err),
		})
		return
	}
	s.tables = append([]string(nil), msg.Tables...)
	s.log.Info().Int("count", len(s.tables)).Msg("tables loaded")
}

func (s *Session) applyChat(msg ChatReplyMsg) {
	defer func() { s.busy[OpChat] = false }()

	if msg.Err != nil {
		s.log.Error().Err(msg.Err).Str("op", OpChat.String()).Msg("chat turn failed")
		s.transcript.Append(ChatTurn{Role: RoleAssistant, Content: "Error: " + ErrorMessage(msg.Err)})
		return
	}
	if msg.Reply == nil {
		return
	}

	if msg.Reply.Query != "" {
		s.query = msg.Reply.Query
	}
	if msg.Reply.Results != nil {
		s.setResult(msg.Ticket, tableArtifact(msg.Reply.Results))
	}
	if msg.Reply.Message != "" {
		s.transcript.Append(ChatTurn{Role: RoleAssistant, Content: msg.Reply.Message})
	}
}

func (s *Session) applyQueryResult(msg QueryResultMsg) {
	s.busy[OpExecute] = false
	if msg.Err != nil {
		s.log.Error().Err(msg.Err).Str("op", OpExecute.String()).Msg("query execution failed")
		s.setResult(msg.Ticket, errorArtifact(msg.Err))
		return
	}
	s.setResult(msg.Ticket, tableArtifact(msg.Result))
}

func (s *Session) nextTicket() uint64 {
	s.issued++
	return s.issued
}

// setResult replaces the artifact unless a newer one is already shown.
func (s *Session) setResult(ticket uint64, a ResultArtifact) {
	if ticket < s.applied {
		s.log.Debug().Uint64("ticket", ticket).Uint64("applied", s.applied).Msg("dropping stale result")
		return
	}
	s.applied = ticket
	s.result = a
}
