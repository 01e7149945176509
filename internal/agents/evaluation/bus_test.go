package evaluation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/bus"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/state"
)

func TestRegisterHandlers_RunValidationRoundTrip(t *testing.T) {
	b := bus.New()
	a := New(&MockInspector{Findings: map[string][]state.Issue{}}, testLogger())
	require.NoError(t, a.RegisterHandlers(b))

	resp := b.Send(context.Background(), AgentName, "run_validation", RunValidationPayload{NWBPath: "out.nwb"})
	require.True(t, resp.Success)
	result, ok := resp.Result.(ValidationResult)
	require.True(t, ok)
	assert.Equal(t, "PASSED", string(result.Outcome))
}

func TestRegisterHandlers_MissingActionIsAgentNotFound(t *testing.T) {
	b := bus.New()
	a := New(&MockInspector{}, testLogger())
	require.NoError(t, a.RegisterHandlers(b))

	resp := b.Send(context.Background(), AgentName, "nonexistent_action", nil)
	assert.False(t, resp.Success)
	assert.Equal(t, bus.ErrCodeAgentNotFound, resp.ErrorCode)
}
