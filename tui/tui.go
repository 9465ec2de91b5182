package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DachengChen/dbchat/applog"
	"github.com/DachengChen/dbchat/backend"
	"github.com/DachengChen/dbchat/config"
	"github.com/DachengChen/dbchat/session"
)

// NewBackend returns the backend selected by cfg: the HTTP client, or
// the offline placeholder in demo mode.
func NewBackend(cfg *config.Config) session.Backend {
	if cfg.UI.Demo {
		return backend.NewPlaceholder(400 * time.Millisecond)
	}
	return backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout, applog.Logger())
}

// withConfig fills the display options that come from cfg and b.
func withConfig(opts Options, cfg *config.Config, b session.Backend) Options {
	opts.Demo = cfg.UI.Demo
	opts.Style = cfg.UI.Style
	opts.BackendURL = cfg.Backend.URL
	if c, ok := b.(*backend.Client); ok {
		opts.BackendURL = c.BaseURL()
	}
	return opts
}

// Start launches the TUI and blocks until the user quits.
func Start(cfg *config.Config, opts Options) error {
	b := NewBackend(cfg)
	app := NewApp(b, applog.Logger(), withConfig(opts, cfg, b))
	p := tea.NewProgram(app, tea.WithAltScreen())

	applog.Info("tui started (backend=%s demo=%t)", cfg.Backend.URL, cfg.UI.Demo)
	_, err := p.Run()
	applog.Info("tui stopped")
	return err
}
