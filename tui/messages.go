// messages.go defines the messages screens use to talk to the App.
//
// Backend results travel as the session package's messages; the types
// here only move the user between screens.
package tui

import "github.com/DachengChen/dbchat/session"

// EngineChosenMsg is sent by the landing screen.
type EngineChosenMsg struct {
	Engine session.EngineKind
}

// BackToLandingMsg returns from the credential form to engine selection.
type BackToLandingMsg struct{}

// DisconnectMsg ends the chat session and returns to engine selection.
type DisconnectMsg struct{}
