package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordUserAndAssistant(t *testing.T) {
	h := NewInMemoryHistory()
	now := time.Now()
	h.RecordUser("hello", now)
	h.RecordAssistant("hi there", now)

	turns := h.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "hello", turns[0].Text)
	assert.Equal(t, RoleAssistant, turns[1].Role)
}

func TestWindowIsBoundedAtMaxTurns(t *testing.T) {
	h := NewInMemoryHistory()
	base := time.Now()
	for i := 0; i < MaxTurns+10; i++ {
		h.RecordUser("turn", base.Add(time.Duration(i)*time.Second))
	}

	assert.Equal(t, MaxTurns, h.Len())
}

func TestWindowDropsOldestFirst(t *testing.T) {
	h := NewInMemoryHistory()
	base := time.Now()
	for i := 0; i < MaxTurns+1; i++ {
		h.RecordUser(itoaTag(i), base.Add(time.Duration(i)*time.Second))
	}

	turns := h.Turns()
	require.Len(t, turns, MaxTurns)
	// The first turn (tag "0") should have been evicted.
	assert.Equal(t, itoaTag(1), turns[0].Text)
	assert.Equal(t, itoaTag(MaxTurns), turns[len(turns)-1].Text)
}

func TestLastTurn(t *testing.T) {
	h := NewInMemoryHistory()
	_, ok := h.LastTurn()
	assert.False(t, ok)

	h.RecordUser("first", time.Now())
	h.RecordAssistant("second", time.Now())

	last, ok := h.LastTurn()
	require.True(t, ok)
	assert.Equal(t, "second", last.Text)
}

func TestClear(t *testing.T) {
	h := NewInMemoryHistory()
	h.RecordUser("a", time.Now())
	h.Clear()
	assert.Equal(t, 0, h.Len())
	_, ok := h.LastTurn()
	assert.False(t, ok)
}

func itoaTag(n int) string {
	digits := []byte{}
	if n == 0 {
		return "0"
	}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
