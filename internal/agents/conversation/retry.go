package conversation

import (
	"context"

	convagent "github.com/agentic-neurodata/conversion-orchestrator/internal/agents/conversion"
	evalagent "github.com/agentic-neurodata/conversion-orchestrator/internal/agents/evaluation"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/models"
)

// enterRetryIteration runs one pass of the Retry Loop (§4.7.5): bump the
// attempt counter, analyze the prior issues for auto-fixable vs.
// user-supplied corrections, apply what can be applied, re-convert, and
// re-validate.
func (a *Agent) enterRetryIteration(ctx context.Context) error {
	if err := a.state.IncrementCorrectionAttempt(); err != nil {
		return a.state.SetTerminal(models.DispositionFailedDeclined)
	}

	previousIssues := a.state.Issues()
	a.state.SetPreviousIssuesFingerprint(evalagent.Fingerprint(previousIssues))
	a.state.SetUserProvidedInputThisAttempt(false)
	a.state.SetAutoCorrectionsAppliedThisAttempt(false)

	resp := a.bus.Send(ctx, evalagent.AgentName, "analyze_corrections", evalagent.AnalyzeCorrectionsPayload{
		Issues:    previousIssues,
		Effective: a.state.EffectiveMetadata(),
	})
	if !resp.Success {
		return a.handleAgentFailure(ctx, "correction analysis failed: "+resp.ErrorMessage)
	}
	analysis := resp.Result.(evalagent.CorrectionAnalysis)
	a.pendingCorrectionAnalysis = &analysis

	return a.resumeRetryCorrectionInput(ctx)
}

// resumeRetryCorrectionInput asks for any still-unresolved user-input-required
// field from the last correction analysis (re-entering METADATA_COLLECTION
// per §4.7.5 step 4), or proceeds to apply corrections once every such field
// has been provided or declined. a.pendingCorrectionAnalysis being non-nil is
// what distinguishes this retry-loop re-entry from the pre-conversion
// Metadata Request Gate once chat() routes a reply back here.
func (a *Agent) resumeRetryCorrectionInput(ctx context.Context) error {
	analysis := a.pendingCorrectionAnalysis
	if analysis == nil {
		return a.applyCorrectionsAndContinue(ctx, evalagent.CorrectionAnalysis{})
	}

	declined := a.state.DeclinedFields()
	effective := a.state.EffectiveMetadata()
	var remaining []string
	for _, field := range analysis.UserInputRequired {
		if declined[field] {
			continue
		}
		if _, ok := effective[field]; ok {
			continue
		}
		remaining = append(remaining, field)
	}

	if len(remaining) == 0 {
		a.pendingCorrectionAnalysis = nil
		return a.applyCorrectionsAndContinue(ctx, *analysis)
	}

	if a.state.WantsSequential() {
		remaining = remaining[:1]
	}
	a.lastAskedFields = remaining
	a.state.EnterPhase(models.PhaseMetadataCollection, buildMetadataQuestion(remaining))
	return nil
}

// applyCorrectionsAndContinue merges auto-fixable corrections, invokes
// apply_corrections, and re-validates the re-converted output.
func (a *Agent) applyCorrectionsAndContinue(ctx context.Context, analysis evalagent.CorrectionAnalysis) error {
	userProvided := a.state.UserProvidedInputThisAttempt()
	if err := a.state.BeginConversion(); err != nil {
		return err
	}
	a.state.SetUserProvidedInputThisAttempt(userProvided)

	if len(analysis.AutoFixable) > 0 {
		fixes := make(map[string]string, len(analysis.AutoFixable))
		for _, c := range analysis.AutoFixable {
			fixes[c.Field] = c.Value
		}
		a.state.MergeAutoExtracted(fixes)
		a.state.SetAutoCorrectionsAppliedThisAttempt(true)
	}

	format, _, _ := a.state.DetectedFormat()
	progress := func(pct int, label string) { a.state.SetConversionProgress(pct, label) }

	resp := a.bus.Send(ctx, convagent.AgentName, "apply_corrections", convagent.ApplyCorrectionsPayload{
		InputPath:          a.state.InputPath(),
		Format:             format,
		Corrections:        a.state.EffectiveMetadata(),
		PreviousOutputPath: a.state.OutputPath(),
		PreviousChecksum:   a.state.Checksum(),
		Version:            a.state.CorrectionAttempt(),
		Progress:           progress,
	})
	if !resp.Success {
		return a.handleAgentFailure(ctx, "re-conversion failed: "+resp.ErrorMessage)
	}
	result := resp.Result.(convagent.ApplyCorrectionsResult)
	a.state.SetOutput(result.Result.OutputPath, result.Result.Checksum)

	return a.validateAndDispatchRetry(ctx, result.Result.OutputPath, result.Result.Checksum)
}

// validateAndDispatchRetry re-validates a corrected output and applies the
// no-progress guard before Outcome Dispatch: if the new issue set is
// identical to the one that triggered this iteration and neither user input
// nor an auto-fix was actually applied, the attempt made no progress. A
// second consecutive no-progress attempt forces termination rather than
// looping forever within the MAX_RETRIES cap.
func (a *Agent) validateAndDispatchRetry(ctx context.Context, outputPath, checksum string) error {
	resp := a.bus.Send(ctx, evalagent.AgentName, "run_validation", evalagent.RunValidationPayload{NWBPath: outputPath})
	if !resp.Success {
		return a.handleAgentFailure(ctx, "validation failed: "+resp.ErrorMessage)
	}
	result := resp.Result.(evalagent.ValidationResult)

	noProgress := evalagent.Fingerprint(result.Issues) == a.state.PreviousIssuesFingerprint() &&
		!a.state.UserProvidedInputThisAttempt() && !a.state.AutoCorrectionsAppliedThisAttempt()

	if noProgress {
		if a.state.IncrementConsecutiveNoProgress() >= 2 {
			a.generateReports(ctx, result, outputPath, checksum)
			return a.state.SetTerminal(models.DispositionFailedDeclined)
		}
		a.state.RecordAssistantTurn("That correction attempt didn't change the outstanding issues. You can try again or stop here.")
	} else {
		a.state.ResetConsecutiveNoProgress()
	}

	a.generateReports(ctx, result, outputPath, checksum)
	return a.dispatchOutcome(result)
}
