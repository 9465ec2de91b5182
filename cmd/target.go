package cmd

import (
	"fmt"

	"github.com/DachengChen/dbchat/session"
)

// resolveTarget turns --engine and --dsn into an engine and form
// prefill. The engine is optional for the TUI and required for the REPL.
func resolveTarget(engineName, dsn string, requireEngine bool) (session.EngineKind, session.Credentials, error) {
	if engineName == "" {
		if requireEngine {
			return 0, session.Credentials{}, fmt.Errorf("--engine is required")
		}
		if dsn != "" {
			return 0, session.Credentials{}, fmt.Errorf("--dsn needs --engine")
		}
		return 0, session.Credentials{}, nil
	}

	engine, err := session.ParseEngine(engineName)
	if err != nil {
		return 0, session.Credentials{}, err
	}
	if dsn == "" {
		return engine, session.Credentials{}, nil
	}

	creds, err := session.CredentialsFromDSN(engine, dsn)
	if err != nil {
		return 0, session.Credentials{}, err
	}
	return engine, creds, nil
}
