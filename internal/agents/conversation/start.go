package conversation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	convagent "github.com/agentic-neurodata/conversion-orchestrator/internal/agents/conversion"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/apperrors"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/models"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/state"
)

// StartConversion implements §4.7.1. inputPath has already been staged by
// BeginUpload; siblings lists the other uploaded files, used by pattern-
// based format detection when a recording spans multiple companion files.
func (a *Agent) StartConversion(ctx context.Context, inputPath string, siblings []string) error {
	release, err := a.enter()
	if err != nil {
		return err
	}
	defer release()

	if err := a.state.SetFormatDetectionStarted(); err != nil {
		return err
	}

	resp := a.bus.Send(ctx, convagent.AgentName, "detect_format", convagent.DetectFormatPayload{
		InputPath: inputPath,
		Siblings:  siblings,
	})
	if !resp.Success {
		return apperrors.NewAgentRecoverable("format detection failed", fmt.Errorf("%s: %s", resp.ErrorCode, resp.ErrorMessage))
	}
	detection := resp.Result.(convagent.DetectionResult)

	if err := a.state.SetFormatDetectionResult(detection.Format, detection.Confidence, toStateCandidates(detection.Candidates)); err != nil {
		return err
	}

	if detection.Band == "ambiguous" {
		a.state.EnterPhase(models.PhaseFormatSelection, buildFormatSelectionQuestion(detection.Candidates))
		return nil
	}

	return a.proceedPastFormatDetection(ctx)
}

// proceedPastFormatDetection is steps 3-4 of §4.7.1: evaluate the Metadata
// Request Gate, then either ask or begin conversion. Promotes any staged
// pending_input_path (invariant 7, scenario 6) into input_path first, so a
// re-upload accepted mid-dialogue is what gets converted rather than the
// file the conversation originally started with.
func (a *Agent) proceedPastFormatDetection(ctx context.Context) error {
	a.state.ConsumePendingInput()

	if open, missing := a.shouldOpenMetadataGate(); open {
		a.state.SetMetadataRequestPolicy(models.PolicyAskedOnce)
		a.lastAskedFields = missing
		a.state.EnterPhase(models.PhaseMetadataCollection, buildMetadataQuestion(missing))
		return nil
	}
	return a.runConversionAndValidate(ctx, a.state.InputPath())
}

func toStateCandidates(cs []convagent.Candidate) []state.FormatCandidate {
	out := make([]state.FormatCandidate, len(cs))
	for i, c := range cs {
		out[i] = state.FormatCandidate{Format: c.Format, Confidence: c.Confidence, Evidence: c.Evidence}
	}
	return out
}

func buildFormatSelectionQuestion(candidates []convagent.Candidate) string {
	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = fmt.Sprintf("%s (%d%% match, %s)", c.Format, c.Confidence, c.Evidence)
	}
	return "I couldn't confidently identify the acquisition format. Candidates: " +
		strings.Join(parts, "; ") + ". Which one is it?"
}

// handleFormatSelectionReply parses the user's reply against the candidates
// offered during FORMAT_SELECTION and resumes step 3 of StartConversion.
func (a *Agent) handleFormatSelectionReply(ctx context.Context, text string) error {
	_, _, candidates := a.state.DetectedFormat()
	lower := strings.ToLower(text)

	var names []string
	for _, c := range candidates {
		names = append(names, c.Format)
	}
	sort.Strings(names)

	for _, name := range names {
		if strings.Contains(lower, strings.ToLower(name)) {
			if err := a.state.SetFormatDetectionResult(name, 100, candidates); err != nil {
				return err
			}
			return a.proceedPastFormatDetection(ctx)
		}
	}

	a.state.RecordAssistantTurn(fmt.Sprintf("I didn't recognize that as one of: %s. Please name one of the listed formats.", strings.Join(names, ", ")))
	return nil
}
