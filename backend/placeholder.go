package backend

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/DachengChen/dbchat/session"
)

// Placeholder is an offline backend with canned answers, used by --demo.
type Placeholder struct {
	delay time.Duration
}

var _ session.Backend = (*Placeholder)(nil)

// NewPlaceholder creates a placeholder that answers after delay.
func NewPlaceholder(delay time.Duration) *Placeholder {
	return &Placeholder{delay: delay}
}

var demoTables = []string{"students", "courses", "enrollments"}

var demoRows = map[string]*session.ResultSet{
	"students": {
		Columns: []string{"id", "name", "year"},
		Rows:    [][]any{{1, "Ada", 2}, {2, "Grace", 3}, {3, "Linus", 1}},
	},
	"courses": {
		Columns: []string{"id", "title", "credits"},
		Rows:    [][]any{{10, "Databases", 6}, {11, "Compilers", 6}},
	},
	"enrollments": {
		Columns: []string{"student_id", "course_id"},
		Rows:    [][]any{},
	},
}

var tableInPrompt = regexp.MustCompile(`^Show information about (\S+) table in`)

// wait simulates network latency.
func (p *Placeholder) wait(ctx context.Context) error {
	select {
	case <-time.After(p.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Placeholder) Connect(ctx context.Context, engine session.EngineKind, _ session.Credentials) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully connected to %s (demo)", engine), nil
}

func (p *Placeholder) ListTables(ctx context.Context, db string) ([]string, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if db == "" {
		return nil, &APIError{Op: "tables", Status: 400, Message: "No connection found for the given database type"}
	}
	return append([]string(nil), demoTables...), nil
}

func (p *Placeholder) Chat(ctx context.Context, message, _ string) (*session.ChatReply, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	if m := tableInPrompt.FindStringSubmatch(message); m != nil {
		return &session.ChatReply{Query: "SELECT * FROM " + m[1] + " LIMIT 10;"}, nil
	}

	lower := strings.ToLower(message)
	for _, t := range demoTables {
		if strings.Contains(lower, t) {
			return &session.ChatReply{
				Message: fmt.Sprintf("This is a demo answer. Press ctrl+e to run the query on **%s**.", t),
				Query:   "SELECT * FROM " + t + ";",
			}, nil
		}
	}
	return &session.ChatReply{
		Message: fmt.Sprintf("Demo backend: you asked %q. Mention one of %s to get a query.",
			message, strings.Join(demoTables, ", ")),
	}, nil
}

func (p *Placeholder) ExecuteQuery(ctx context.Context, query, _ string) (*session.ResultSet, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	lower := strings.ToLower(query)
	for _, t := range demoTables {
		if strings.Contains(lower, "from "+t) {
			return demoRows[t], nil
		}
	}
	return nil, &APIError{Op: "execute", Status: 500, Message: "relation does not exist"}
}
