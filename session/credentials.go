package session

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Credentials are sent once with a connect request and never stored.
type Credentials struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// ValidationError lists the credential fields that were left empty.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required field(s): " + strings.Join(e.Missing, ", ")
}

// Validate checks that all five fields are present.
func (c Credentials) Validate() error {
	fields := []struct {
		name, value string
	}{
		{"host", c.Host},
		{"port", c.Port},
		{"user", c.User},
		{"password", c.Password},
		{"database", c.Database},
	}

	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// String redacts the password so credentials are safe to log.
func (c Credentials) String() string {
	pw := ""
	if c.Password != "" {
		pw = ":***"
	}
	return fmt.Sprintf("%s%s@%s:%s/%s", c.User, pw, c.Host, c.Port, c.Database)
}

// CredentialsFromDSN parses a connection string into form values.
//
// PostgreSQL accepts anything pgconn does (URL or keyword=value form)
// and follows libpq defaulting. The other engines take a URL with a
// matching scheme; fields the URL leaves out stay empty.
func CredentialsFromDSN(engine EngineKind, dsn string) (Credentials, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return Credentials{}, fmt.Errorf("empty DSN")
	}

	if engine == PostgreSQL {
		cfg, err := pgconn.ParseConfig(dsn)
		if err != nil {
			return Credentials{}, fmt.Errorf("parse postgres dsn: %w", err)
		}
		return Credentials{
			Host:     cfg.Host,
			Port:     strconv.Itoa(int(cfg.Port)),
			User:     cfg.User,
			Password: cfg.Password,
			Database: cfg.Database,
		}, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return Credentials{}, fmt.Errorf("parse %s dsn: %w", engine.Slug(), err)
	}
	if !schemeMatches(engine, u.Scheme) {
		return Credentials{}, fmt.Errorf("dsn scheme %q does not match engine %s", u.Scheme, engine)
	}

	if engine == SQLite {
		// sqlite:///abs/path.db and sqlite://rel.db both name a file.
		return Credentials{Database: u.Host + u.Path}, nil
	}

	c := Credentials{
		Host:     u.Hostname(),
		Port:     u.Port(),
		Database: strings.TrimPrefix(u.Path, "/"),
	}
	if u.User != nil {
		c.User = u.User.Username()
		c.Password, _ = u.User.Password()
	}
	return c, nil
}

func schemeMatches(engine EngineKind, scheme string) bool {
	switch engine {
	case MySQL:
		return scheme == "mysql"
	case MongoDB:
		return scheme == "mongodb" || scheme == "mongodb+srv"
	case SQLite:
		return scheme == "sqlite" || scheme == "sqlite3" || scheme == "file"
	}
	return false
}
