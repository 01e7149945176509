package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/bus"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/llm"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/state"
)

func newTestAgent() *Agent {
	s := state.New(10)
	return New(s, bus.New(), nil, testLogger())
}

func TestClassifyIntent_KeywordCancel(t *testing.T) {
	a := newTestAgent()
	assert.Equal(t, IntentCancel, a.classifyIntent(context.Background(), "please cancel this", false))
}

func TestClassifyIntent_KeywordDeclineGlobal(t *testing.T) {
	a := newTestAgent()
	assert.Equal(t, IntentDeclineGlobal, a.classifyIntent(context.Background(), "just proceed without it", false))
}

func TestClassifyIntent_KeywordDeclineFieldDowngradedWhenMultipleAsked(t *testing.T) {
	a := newTestAgent()
	assert.Equal(t, IntentDeclineGlobal, a.classifyIntent(context.Background(), "skip this one", false))
}

func TestClassifyIntent_KeywordDeclineFieldKeptWhenSingleAsked(t *testing.T) {
	a := newTestAgent()
	assert.Equal(t, IntentDeclineField, a.classifyIntent(context.Background(), "skip this one", true))
}

func TestClassifyIntent_KeywordSequential(t *testing.T) {
	a := newTestAgent()
	assert.Equal(t, IntentRequestSequential, a.classifyIntent(context.Background(), "can you ask one at a time", false))
}

func TestClassifyIntent_KeywordProvide(t *testing.T) {
	a := newTestAgent()
	assert.Equal(t, IntentProvide, a.classifyIntent(context.Background(), "the subject is a mouse, male, P60", false))
}

func TestClassifyIntent_KeywordUncertain(t *testing.T) {
	a := newTestAgent()
	assert.Equal(t, IntentUncertain, a.classifyIntent(context.Background(), "hmm", false))
}

func TestClassifyIntent_LLMAcceptedAboveThreshold(t *testing.T) {
	mock := llm.NewMockGateway()
	mock.Script(intentSystemPrompt, "actually let's stop here",
		`{"intent":"CANCEL","confidence":95,"reasoning":"explicit stop request"}`)
	a := New(state.New(10), bus.New(), mock, testLogger())

	assert.Equal(t, IntentCancel, a.classifyIntent(context.Background(), "actually let's stop here", false))
}

func TestClassifyIntent_LLMBelowThresholdFallsBackToKeyword(t *testing.T) {
	mock := llm.NewMockGateway()
	mock.Script(intentSystemPrompt, "just proceed without it",
		`{"intent":"PROVIDE","confidence":10,"reasoning":"low confidence guess"}`)
	a := New(state.New(10), bus.New(), mock, testLogger())

	assert.Equal(t, IntentDeclineGlobal, a.classifyIntent(context.Background(), "just proceed without it", false))
}

func TestNormalizeFieldDecline_KeepsOtherIntentsUnchanged(t *testing.T) {
	assert.Equal(t, IntentCancel, normalizeFieldDecline(IntentCancel, false))
	assert.Equal(t, IntentDeclineField, normalizeFieldDecline(IntentDeclineField, true))
}
