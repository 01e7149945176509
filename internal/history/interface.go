// Package history holds the bounded dialogue history attached to the
// Workflow State: an ordered rolling window of the last 50 turns, each a
// (role, text, timestamp) triple, generalized from tool-call-aware LLM
// context management to a plain conversation log.
package history

import "time"

// Role distinguishes who spoke a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in the dialogue history.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// MaxTurns bounds the rolling window per the data model (§3: "rolling
// window of the last 50 turns").
const MaxTurns = 50

// DialogueHistory is the interface for managing one conversion's
// conversation history.
type DialogueHistory interface {
	// RecordUser appends a user turn, evicting the oldest turn if the
	// window is full.
	RecordUser(text string, at time.Time)
	// RecordAssistant appends an assistant turn, evicting the oldest turn
	// if the window is full.
	RecordAssistant(text string, at time.Time)
	// Turns returns a copy of the current window, oldest first.
	Turns() []Turn
	// LastTurn returns the most recent turn and whether one exists.
	LastTurn() (Turn, bool)
	// Len returns the number of turns currently held.
	Len() int
	// Clear empties the history (used by reset()).
	Clear()
}
