package session

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

// Connector issues connect requests, one at a time.
type Connector struct {
	backend  Backend
	log      zerolog.Logger
	inFlight bool
}

// NewConnector creates a Connector for backend.
func NewConnector(backend Backend, log zerolog.Logger) *Connector {
	return &Connector{backend: backend, log: log}
}

// Busy reports whether a connect request is outstanding.
func (c *Connector) Busy() bool { return c.inFlight }

// Submit validates creds and returns the command that performs the
// connect call. The credentials live only in that command's closure;
// nothing on the Connector keeps them.
func (c *Connector) Submit(engine EngineKind, creds Credentials) (tea.Cmd, error) {
	if !engine.Valid() {
		return nil, ErrInvalidEngine
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if c.inFlight {
		return nil, ErrBusy
	}

	c.inFlight = true
	c.log.Info().Str("engine", engine.String()).Str("target", creds.String()).Msg("connecting")
	backend := c.backend

	return func() tea.Msg {
		ack, err := backend.Connect(context.Background(), engine, creds)
		if err != nil {
			return ConnectFailedMsg{Engine: engine, Err: err}
		}
		return ConnectedMsg{
			Ref:     SessionRef{DB: engine.String(), Engine: engine},
			Message: ack,
		}
	}, nil
}

// Apply clears the in-flight flag when a connect result arrives.
func (c *Connector) Apply(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case ConnectedMsg:
		c.inFlight = false
		c.log.Info().Str("db", msg.Ref.DB).Msg("connected")
	case ConnectFailedMsg:
		c.inFlight = false
		c.log.Error().Err(msg.Err).Str("engine", msg.Engine.String()).Msg("connect failed")
	default:
		return false
	}
	return true
}
