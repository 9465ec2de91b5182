package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at a temp dir so no real config file leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("backend", DefaultBackendURL, "")
	fs.Duration("timeout", 0, "")
	fs.String("log-level", DefaultLogLevel, "")
	fs.String("style", DefaultStyle, "")
	fs.Bool("demo", false, "")
	fs.String("engine", "", "")
	fs.String("dsn", "", "")
	return fs
}

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultBackendURL, cfg.Backend.URL)
	assert.Equal(t, time.Duration(0), cfg.Backend.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join(home, ".dbchat", "logs"), cfg.Log.Dir)
	assert.Equal(t, "auto", cfg.UI.Style)
	assert.False(t, cfg.UI.Demo)
	assert.Empty(t, cfg.File)
}

func TestLoad_DefaultFileIsPickedUp(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".dbchat")
	require.NoError(t, os.MkdirAll(dir, 0700))
	path := writeFile(t, dir, "backend:\n  url: http://backend.internal:8080\n")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://backend.internal:8080", cfg.Backend.URL)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)
	path := writeFile(t, t.TempDir(), `
backend:
  url: http://from-file:5000
  timeout: 30s
log:
  level: debug
  dir: ~/custom-logs
ui:
  style: dark
`)
	t.Setenv("DBCHAT_BACKEND_URL", "http://from-env:5000")
	t.Setenv("DBCHAT_UI_DEMO", "true")

	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"--log-level", "warn", "--engine", "mysql"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:5000", cfg.Backend.URL, "env beats file")
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout, "file beats defaults")
	assert.Equal(t, "warn", cfg.Log.Level, "flag beats file")
	assert.Equal(t, "dark", cfg.UI.Style)
	assert.True(t, cfg.UI.Demo)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), "custom-logs"), cfg.Log.Dir)
}

func TestLoad_UnsetFlagsDoNotOverride(t *testing.T) {
	isolate(t)
	path := writeFile(t, t.TempDir(), "backend:\n  url: http://from-file:5000\n")

	fs := newFlags()
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "http://from-file:5000", cfg.Backend.URL)
}

func TestLoad_FlagMapping(t *testing.T) {
	isolate(t)

	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"--backend", "http://cli:9000", "--demo", "--style", "light"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "http://cli:9000", cfg.Backend.URL)
	assert.True(t, cfg.UI.Demo)
	assert.Equal(t, "light", cfg.UI.Style)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.ErrorContains(t, err, "error reading config file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		errSubstr string
	}{
		{name: "empty url", body: "backend:\n  url: \"\"\n", errSubstr: "backend.url"},
		{name: "negative timeout", body: "backend:\n  timeout: -1s\n", errSubstr: "backend.timeout"},
		{name: "unknown style", body: "ui:\n  style: neon\n", errSubstr: "ui.style"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			path := writeFile(t, t.TempDir(), tt.body)

			_, err := Load(path, nil)
			assert.ErrorContains(t, err, tt.errSubstr)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	in := &Config{
		Backend: BackendConfig{URL: "http://saved:5000", Timeout: 15 * time.Second},
		Log:     LogConfig{Level: "debug", Dir: "/var/log/dbchat"},
		UI:      UIConfig{Style: "notty", Demo: true},
	}
	require.NoError(t, Save(in, path))

	out, err := Load(path, nil)
	require.NoError(t, err)
	in.File = path
	assert.Equal(t, in, out)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
