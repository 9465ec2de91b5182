// Package applog provides general-purpose application logging.
//
// Logs are written to <log dir>/app.log as JSON lines with timestamps.
// Covers: app start/stop, config, connects, and every backend round trip.
// The terminal belongs to the TUI, so nothing is ever written to stdout.
package applog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu      sync.Mutex
	logFile *os.File
	logger  = zerolog.Nop()
)

// FileName is the log file created inside the log directory.
const FileName = "app.log"

// Init opens (or creates) dir/app.log and installs the logger.
// Calling Init again replaces the previous file.
func Init(dir, level string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	logger = newLogger(f, level)
	return nil
}

// SetOutput installs a logger writing to w. Tests use it to capture output.
func SetOutput(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, level)
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel maps a config level to zerolog, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the application logger for components that want
// structured fields.
func Logger() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Info logs a general info message.
func Info(format string, args ...interface{}) {
	l := Logger()
	l.Info().Msgf(format, args...)
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	l := Logger()
	l.Error().Msgf(format, args...)
}

// Event logs a message under a category, e.g. "connect" or "config".
func Event(category string, format string, args ...interface{}) {
	l := Logger()
	l.Info().Str("category", category).Msgf(format, args...)
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	logger = zerolog.Nop()
}
