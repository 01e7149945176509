package evaluation

import (
	"context"
	"fmt"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/bus"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/state"
)

// AgentName is this agent's identity on the Message Bus.
const AgentName = "evaluation"

type RunValidationPayload struct {
	NWBPath string
}

type AnalyzeCorrectionsPayload struct {
	Issues    []state.Issue
	Effective map[string]string
}

type GenerateReportsPayload struct {
	Result            ValidationResult
	NWBPath           string
	Checksum          string
	CorrectionAttempt int
}

// RegisterHandlers binds this agent's three actions onto b under AgentName.
func (a *Agent) RegisterHandlers(b *bus.Bus) error {
	if err := b.Register(AgentName, "run_validation", a.handleRunValidation); err != nil {
		return err
	}
	if err := b.Register(AgentName, "analyze_corrections", a.handleAnalyzeCorrections); err != nil {
		return err
	}
	if err := b.Register(AgentName, "generate_reports", a.handleGenerateReports); err != nil {
		return err
	}
	return nil
}

func (a *Agent) handleRunValidation(ctx context.Context, msg bus.Message) (any, error) {
	p, ok := msg.Payload.(RunValidationPayload)
	if !ok {
		return nil, fmt.Errorf("evaluation.run_validation: unexpected payload type %T", msg.Payload)
	}
	return a.RunValidation(ctx, p.NWBPath), nil
}

func (a *Agent) handleAnalyzeCorrections(ctx context.Context, msg bus.Message) (any, error) {
	p, ok := msg.Payload.(AnalyzeCorrectionsPayload)
	if !ok {
		return nil, fmt.Errorf("evaluation.analyze_corrections: unexpected payload type %T", msg.Payload)
	}
	return a.AnalyzeCorrections(p.Issues, p.Effective), nil
}

func (a *Agent) handleGenerateReports(ctx context.Context, msg bus.Message) (any, error) {
	p, ok := msg.Payload.(GenerateReportsPayload)
	if !ok {
		return nil, fmt.Errorf("evaluation.generate_reports: unexpected payload type %T", msg.Payload)
	}
	return a.GenerateReports(p.Result, p.NWBPath, p.Checksum, p.CorrectionAttempt), nil
}
