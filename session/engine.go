package session

import (
	"fmt"
	"strings"
)

// EngineKind is the database engine the backend connects to.
type EngineKind int

const (
	PostgreSQL EngineKind = iota + 1
	MongoDB
	MySQL
	SQLite
)

// Engines lists the supported engines in landing-screen order.
var Engines = []EngineKind{PostgreSQL, MongoDB, MySQL, SQLite}

var engineNames = map[EngineKind]string{
	PostgreSQL: "PostgreSQL",
	MongoDB:    "MongoDB",
	MySQL:      "MySQL",
	SQLite:     "SQLite",
}

// String returns the display name, which doubles as the database
// identifier of a session.
func (e EngineKind) String() string {
	if name, ok := engineNames[e]; ok {
		return name
	}
	return fmt.Sprintf("EngineKind(%d)", int(e))
}

// Slug is the lower-case form used in backend URLs.
func (e EngineKind) Slug() string {
	return strings.ToLower(e.String())
}

// Valid reports whether e is one of the supported engines.
func (e EngineKind) Valid() bool {
	_, ok := engineNames[e]
	return ok
}

// ParseEngine resolves a name case-insensitively. "postgres", "mongo"
// and "sqlite3" are accepted as aliases.
func ParseEngine(s string) (EngineKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgresql", "postgres", "pg":
		return PostgreSQL, nil
	case "mongodb", "mongo":
		return MongoDB, nil
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return 0, fmt.Errorf("unknown engine %q (supported: PostgreSQL, MongoDB, MySQL, SQLite)", s)
}
