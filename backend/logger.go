// logger.go records every backend round trip.
//
// Request bodies are logged at debug level with credentials redacted;
// outcomes are logged at info (success) or error level.
package backend

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/DachengChen/dbchat/session"
)

func logRequest(log zerolog.Logger, op, reqID, method, path string, body any) {
	ev := log.Debug().
		Str("op", op).
		Str("request_id", reqID).
		Str("method", method).
		Str("path", path)

	switch b := body.(type) {
	case session.Credentials:
		ev = ev.Stringer("target", b)
	case chatRequest:
		ev = ev.Str("db_type", b.DBType).Str("message", b.Message)
	case executeRequest:
		ev = ev.Str("db_type", b.DBType).Str("query", b.Query)
	}
	ev.Msg("backend request")
}

func logResponse(log zerolog.Logger, op, reqID string, status int, elapsed time.Duration, err error) {
	if err != nil {
		log.Error().
			Err(err).
			Str("op", op).
			Str("request_id", reqID).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("backend request failed")
		return
	}
	log.Info().
		Str("op", op).
		Str("request_id", reqID).
		Int("status", status).
		Dur("elapsed", elapsed).
		Msg("backend response")
}
