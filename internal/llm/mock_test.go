package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGateway_ScriptedCompletion(t *testing.T) {
	g := NewMockGateway()
	g.Script("detect format", "Noise4Sam_g0_t0.imec0.ap.bin", "SpikeGLX")

	out, err := g.Complete(context.Background(), "detect format", "Noise4Sam_g0_t0.imec0.ap.bin", 0)
	require.NoError(t, err)
	assert.Equal(t, "SpikeGLX", out)
}

func TestMockGateway_UnscriptedCompletionIsDeterministic(t *testing.T) {
	g := NewMockGateway()
	out1, err := g.Complete(context.Background(), "sys", "hello", 0)
	require.NoError(t, err)
	out2, err := g.Complete(context.Background(), "sys", "hello", 0)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestMockGateway_FailNextForcesFallback(t *testing.T) {
	g := NewMockGateway()
	g.FailNext("sys", "hello")

	_, err := g.Complete(context.Background(), "sys", "hello", 0)
	require.ErrorIs(t, err, ErrLLMUnavailable)

	// Only the next call fails; the one after should succeed.
	out, err := g.Complete(context.Background(), "sys", "hello", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestMockGateway_CompleteStructuredProducesRequiredFields(t *testing.T) {
	g := NewMockGateway()
	schema := Schema{
		Name:   "IntentClassification",
		Schema: map[string]any{"required": []string{"intent", "confidence"}},
	}

	obj, err := g.CompleteStructured(context.Background(), "classify", "skip for now", schema, 0)
	require.NoError(t, err)
	assert.Contains(t, obj, "intent")
	assert.Contains(t, obj, "confidence")
}

func TestMockGateway_CompleteStructuredScripted(t *testing.T) {
	g := NewMockGateway()
	g.Script("classify", "cancel please", `{"intent": "CANCEL", "confidence": 95, "reasoning": "explicit cancel keyword"}`)

	schema := Schema{Schema: map[string]any{"required": []string{"intent", "confidence"}}}
	obj, err := g.CompleteStructured(context.Background(), "classify", "cancel please", schema, 0)
	require.NoError(t, err)
	assert.Equal(t, "CANCEL", obj["intent"])
}

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                        `{"a":1}`,
		"```{\"a\":1}```":                  `{"a":1}`,
		"```json\n{\"a\":1}\n```":         `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, stripCodeFences(in))
	}
}
