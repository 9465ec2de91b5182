package session

import "sync"

// Role identifies who produced a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one entry of the transcript. Its identity is its position.
type ChatTurn struct {
	Role    Role
	Content string
}

// Transcript is the append-only conversation record.
//
// Append is the only mutator. All returns a copy, so a reader never
// observes a turn disappearing or moving.
type Transcript struct {
	mu    sync.RWMutex
	turns []ChatTurn
}

// Append adds a turn at the end.
func (t *Transcript) Append(turn ChatTurn) {
	t.mu.Lock()
	t.turns = append(t.turns, turn)
	t.mu.Unlock()
}

// All returns a snapshot of every turn in conversation order.
func (t *Transcript) All() []ChatTurn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ChatTurn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}
