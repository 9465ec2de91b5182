// Package session holds the connect → introspect → converse → execute
// state machine of a chat session.
//
// Design decisions:
//   - The package knows nothing about HTTP or terminals. The backend is
//     an interface; network calls are returned as Bubble Tea commands
//     and their outcomes come back as typed messages.
//   - All state is mutated in Apply, on the caller's event loop. The
//     goroutines that run commands only read values captured at issue
//     time.
//   - Busy state is one set keyed by operation class, and writes to the
//     result artifact are ordered by issue tickets, so a late reply can
//     never overwrite a newer result.
package session

import (
	"context"
	"errors"
)

// ResultSet is tabular data as returned by the backend.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// ChatReply is a successful chat turn. Every field is optional.
type ChatReply struct {
	Message string
	Query   string
	Results *ResultSet
}

// Backend is the remote service that connects to databases, translates
// natural language and executes queries.
type Backend interface {
	// Connect asks the backend to open a connection and returns its
	// acknowledgement text.
	Connect(ctx context.Context, engine EngineKind, creds Credentials) (string, error)

	// ListTables returns the tables or collections of db.
	ListTables(ctx context.Context, db string) ([]string, error)

	// Chat sends one user utterance.
	Chat(ctx context.Context, message, db string) (*ChatReply, error)

	// ExecuteQuery runs query against db.
	ExecuteQuery(ctx context.Context, query, db string) (*ResultSet, error)
}

// Local validation failures. None of them cause a network call.
var (
	ErrEmptyUtterance = errors.New("message is empty")
	ErrBusy           = errors.New("operation already in progress")
	ErrNoQuery        = errors.New("no generated query to execute")
	ErrInvalidEngine  = errors.New("invalid database engine")
)

// ErrorMessage returns the text shown to the user for a failed call:
// the backend's own message when it sent one, else the raw error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return err.Error()
}
