package evaluation

import (
	"context"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/state"
)

// MockInspector is a deterministic stand-in for the NWB-Inspector-equivalent
// library: it returns a caller-scripted finding list per path, or an error
// to exercise the inspector-failure fallback.
type MockInspector struct {
	Findings map[string][]state.Issue
	Fail     error
}

func (m *MockInspector) Inspect(ctx context.Context, nwbPath string) ([]state.Issue, error) {
	if m.Fail != nil {
		return nil, m.Fail
	}
	return m.Findings[nwbPath], nil
}
