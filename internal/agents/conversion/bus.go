package conversion

import (
	"context"
	"fmt"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/bus"
)

// AgentName is this agent's identity on the Message Bus.
const AgentName = "conversion"

// DetectFormatPayload is the bus payload for the detect_format action.
type DetectFormatPayload struct {
	InputPath string
	Siblings  []string
}

// RunConversionPayload is the bus payload for the run_conversion action.
// Progress, if set, is invoked synchronously from within the handler.
type RunConversionPayload struct {
	InputPath string
	Format    string
	Metadata  map[string]string
	Progress  ProgressFunc
}

// ApplyCorrectionsPayload is the bus payload for the apply_corrections
// action.
type ApplyCorrectionsPayload struct {
	InputPath           string
	Format              string
	Corrections         map[string]string
	PreviousOutputPath  string
	PreviousChecksum    string
	Version             int
	Progress            ProgressFunc
}

// ApplyCorrectionsResult is the bus response payload for apply_corrections.
type ApplyCorrectionsResult struct {
	VersionedPath string
	Result        ConvertResult
}

// RegisterHandlers binds this agent's three actions onto b under AgentName,
// the only point where the Conversation Agent and this agent are coupled.
func (a *Agent) RegisterHandlers(b *bus.Bus) error {
	if err := b.Register(AgentName, "detect_format", a.handleDetectFormat); err != nil {
		return err
	}
	if err := b.Register(AgentName, "run_conversion", a.handleRunConversion); err != nil {
		return err
	}
	if err := b.Register(AgentName, "apply_corrections", a.handleApplyCorrections); err != nil {
		return err
	}
	return nil
}

func (a *Agent) handleDetectFormat(ctx context.Context, msg bus.Message) (any, error) {
	p, ok := msg.Payload.(DetectFormatPayload)
	if !ok {
		return nil, fmt.Errorf("conversion.detect_format: unexpected payload type %T", msg.Payload)
	}
	return a.DetectFormat(ctx, p.InputPath, p.Siblings)
}

func (a *Agent) handleRunConversion(ctx context.Context, msg bus.Message) (any, error) {
	p, ok := msg.Payload.(RunConversionPayload)
	if !ok {
		return nil, fmt.Errorf("conversion.run_conversion: unexpected payload type %T", msg.Payload)
	}
	return a.RunConversion(ctx, p.InputPath, p.Format, p.Metadata, p.Progress)
}

func (a *Agent) handleApplyCorrections(ctx context.Context, msg bus.Message) (any, error) {
	p, ok := msg.Payload.(ApplyCorrectionsPayload)
	if !ok {
		return nil, fmt.Errorf("conversion.apply_corrections: unexpected payload type %T", msg.Payload)
	}
	versionedPath, result, err := a.ApplyCorrections(ctx, p.InputPath, p.Format, p.Corrections, p.PreviousOutputPath, p.PreviousChecksum, p.Version, p.Progress)
	if err != nil {
		return nil, err
	}
	return ApplyCorrectionsResult{VersionedPath: versionedPath, Result: result}, nil
}
