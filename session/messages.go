// messages.go defines the Bubble Tea messages produced by session commands.
//
// Every message carries the ID of the session that issued it, so a
// reply that lands after a disconnect is dropped instead of being
// applied to the next session.
package session

import "github.com/google/uuid"

// SessionRef is what a successful connect hands to the chat view.
type SessionRef struct {
	DB     string
	Engine EngineKind
}

// ConnectedMsg is sent when the backend accepted a connect request.
type ConnectedMsg struct {
	Ref     SessionRef
	Message string
}

// ConnectFailedMsg is sent when a connect request failed.
type ConnectFailedMsg struct {
	Engine EngineKind
	Err    error
}

// TablesMsg carries the result of a table list fetch.
type TablesMsg struct {
	Session uuid.UUID
	Tables  []string
	Err     error
}

// ChatReplyMsg carries the result of a chat turn.
type ChatReplyMsg struct {
	Session uuid.UUID
	Ticket  uint64
	Reply   *ChatReply
	Err     error
}

// QueryResultMsg carries the result of an explicit query execution.
type QueryResultMsg struct {
	Session uuid.UUID
	Ticket  uint64
	Result  *ResultSet
	Err     error
}
