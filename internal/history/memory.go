package history

import (
	"sync"
	"time"
)

// InMemoryHistory is a bounded, mutex-guarded ring of the last MaxTurns
// turns: a fixed-capacity rolling window rather than an unbounded slice,
// since only the last 50 turns matter, not full replay.
type InMemoryHistory struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{turns: make([]Turn, 0, MaxTurns)}
}

func (h *InMemoryHistory) append(t Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, t)
	if len(h.turns) > MaxTurns {
		// Drop the oldest turn to keep the window bounded.
		h.turns = h.turns[len(h.turns)-MaxTurns:]
	}
}

func (h *InMemoryHistory) RecordUser(text string, at time.Time) {
	h.append(Turn{Role: RoleUser, Text: text, Timestamp: at})
}

func (h *InMemoryHistory) RecordAssistant(text string, at time.Time) {
	h.append(Turn{Role: RoleAssistant, Text: text, Timestamp: at})
}

func (h *InMemoryHistory) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]Turn, len(h.turns))
	copy(result, h.turns)
	return result
}

func (h *InMemoryHistory) LastTurn() (Turn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.turns) == 0 {
		return Turn{}, false
	}
	return h.turns[len(h.turns)-1], true
}

func (h *InMemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

func (h *InMemoryHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = h.turns[:0]
}
