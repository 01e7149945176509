package conversation

import (
	"context"
	"fmt"

	convagent "github.com/agentic-neurodata/conversion-orchestrator/internal/agents/conversion"
	evalagent "github.com/agentic-neurodata/conversion-orchestrator/internal/agents/evaluation"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/models"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/state"
)

// runConversionAndValidate is step 4 of §4.7.1: begin_conversion, run
// run_conversion over the bus, then validate and dispatch by outcome.
func (a *Agent) runConversionAndValidate(ctx context.Context, inputPath string) error {
	if err := a.state.BeginConversion(); err != nil {
		return err
	}

	format, _, _ := a.state.DetectedFormat()
	progress := func(pct int, label string) { a.state.SetConversionProgress(pct, label) }

	resp := a.bus.Send(ctx, convagent.AgentName, "run_conversion", convagent.RunConversionPayload{
		InputPath: inputPath,
		Format:    format,
		Metadata:  a.state.EffectiveMetadata(),
		Progress:  progress,
	})
	if !resp.Success {
		return a.handleAgentFailure(ctx, fmt.Sprintf("conversion failed: %s", resp.ErrorMessage))
	}
	result := resp.Result.(convagent.ConvertResult)
	a.state.SetOutput(result.OutputPath, result.Checksum)

	return a.validateAndDispatch(ctx, result.OutputPath, result.Checksum)
}

// validateAndDispatch runs run_validation over the bus, generates reports,
// and performs Outcome Dispatch (§4.7.6).
func (a *Agent) validateAndDispatch(ctx context.Context, outputPath, checksum string) error {
	resp := a.bus.Send(ctx, evalagent.AgentName, "run_validation", evalagent.RunValidationPayload{NWBPath: outputPath})
	if !resp.Success {
		return a.handleAgentFailure(ctx, fmt.Sprintf("validation failed: %s", resp.ErrorMessage))
	}
	result := resp.Result.(evalagent.ValidationResult)

	a.generateReports(ctx, result, outputPath, checksum)
	return a.dispatchOutcome(result)
}

// handleAgentFailure treats a bus-level HANDLER_EXCEPTION the same way the
// Evaluation Agent treats an inspector failure: a synthetic CRITICAL
// finding routed through the ordinary FAILED outcome path, so the retry
// loop and reporting stay uniform regardless of which agent failed.
func (a *Agent) handleAgentFailure(ctx context.Context, message string) error {
	a.log("WARNING", "agent invocation failed, treating as validation failure", map[string]any{"message": message})
	result := evalagent.ValidationResult{
		Outcome: models.OutcomeFailed,
		Issues: []state.Issue{{
			Severity:  evalagent.SeverityCritical,
			Message:   message,
			CheckName: "agent_invocation_failure",
		}},
	}
	return a.dispatchOutcome(result)
}

// dispatchOutcome performs the single atomic state transition of §4.7.6 and
// resets the improvement-decision re-prompt counter whenever a fresh
// IMPROVEMENT_DECISION begins.
func (a *Agent) dispatchOutcome(result evalagent.ValidationResult) error {
	var improvementMessage, retryMessage string
	switch result.Outcome {
	case models.OutcomePassedWithIssues:
		improvementMessage = buildImprovementMessage(result.Issues)
	case models.OutcomeFailed:
		retryMessage = buildRetryApprovalMessage(result.Issues)
	}

	a.state.DispatchValidationOutcome(result.Outcome, result.Issues, improvementMessage, retryMessage)
	a.improvementRepromptCount = 0
	return nil
}

func (a *Agent) generateReports(ctx context.Context, result evalagent.ValidationResult, outputPath, checksum string) {
	resp := a.bus.Send(ctx, evalagent.AgentName, "generate_reports", evalagent.GenerateReportsPayload{
		Result:            result,
		NWBPath:           outputPath,
		Checksum:          checksum,
		CorrectionAttempt: a.state.CorrectionAttempt(),
	})
	if !resp.Success {
		a.log("WARNING", "report generation failed", map[string]any{"error": resp.ErrorMessage})
		return
	}
	report := resp.Result.(evalagent.Report)
	a.lastReport = &report
}

// LastReport returns the most recently generated report, used by the
// download(report) external-interface endpoint. Reports are kept only for
// the current conversion, matching the single-active-conversion Non-goal.
func (a *Agent) LastReport() (evalagent.Report, bool) {
	if a.lastReport == nil {
		return evalagent.Report{}, false
	}
	return *a.lastReport, true
}
