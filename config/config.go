// Package config loads the dbchat settings.
//
// Separated from cmd so that tui and backend can depend on config
// without importing Cobra.
//
// Design decisions:
//   - Precedence is flags > environment (DBCHAT_*) > YAML file > defaults.
//   - Only flags the user actually set override lower layers.
//   - Nothing here ever holds database credentials; they are typed into
//     the connect form (or prefilled from --dsn) and sent once.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g. DBCHAT_BACKEND_URL.
const EnvPrefix = "DBCHAT_"

// Defaults.
const (
	DefaultBackendURL = "http://localhost:5000"
	DefaultLogLevel   = "info"
	DefaultStyle      = "auto"
)

// Config holds all application settings.
type Config struct {
	Backend BackendConfig `koanf:"backend"`
	Log     LogConfig     `koanf:"log"`
	UI      UIConfig      `koanf:"ui"`

	// File is the config file that was read, empty if none.
	File string `koanf:"-"`
}

// BackendConfig says where the backend service lives.
type BackendConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// LogConfig controls the application log file.
type LogConfig struct {
	Level string `koanf:"level"`
	Dir   string `koanf:"dir"`
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	Style string `koanf:"style"` // glamour style: auto, dark, light, notty
	Demo  bool   `koanf:"demo"`
}

// flagKeys maps CLI flag names onto config keys. Flags not listed here
// (--config, --engine, --dsn) are not settings.
var flagKeys = map[string]string{
	"backend":   "backend.url",
	"timeout":   "backend.timeout",
	"log-level": "log.level",
	"style":     "ui.style",
	"demo":      "ui.demo",
}

// HomeDir returns ~/.dbchat.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dbchat"
	}
	return filepath.Join(home, ".dbchat")
}

// DefaultFile returns the config file used when --config is not given.
func DefaultFile() string {
	return filepath.Join(HomeDir(), "config.yaml")
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"backend.url":     DefaultBackendURL,
		"backend.timeout": "0s",
		"log.level":       DefaultLogLevel,
		"log.dir":         filepath.Join(HomeDir(), "logs"),
		"ui.style":        DefaultStyle,
		"ui.demo":         false,
	}
}

// Load reads the configuration. An explicit cfgFile must exist; the
// default file is optional. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	path := cfgFile
	if path == "" {
		path = DefaultFile()
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment: DBCHAT_BACKEND_URL -> backend.url
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags the user set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = path
	cfg.Log.Dir = expandHome(cfg.Log.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later and obscurely.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.URL) == "" {
		return fmt.Errorf("backend.url must not be empty")
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must not be negative")
	}
	switch c.UI.Style {
	case "auto", "dark", "light", "notty":
	default:
		return fmt.Errorf("ui.style %q is not one of auto, dark, light, notty", c.UI.Style)
	}
	return nil
}

// Save writes c as YAML to path, creating the directory if needed.
func Save(c *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	doc := map[string]interface{}{
		"backend": map[string]interface{}{
			"url":     c.Backend.URL,
			"timeout": c.Backend.Timeout.String(),
		},
		"log": map[string]interface{}{
			"level": c.Log.Level,
			"dir":   c.Log.Dir,
		},
		"ui": map[string]interface{}{
			"style": c.UI.Style,
			"demo":  c.UI.Demo,
		},
	}
	data, err := yamlv3.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
