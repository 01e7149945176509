package conversation

import (
	"context"
	"strings"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/apperrors"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/models"
)

// Chat implements §4.7.2: route a user utterance by the current
// conversation_phase. Every utterance is appended to history before
// classification, regardless of how it is ultimately handled.
func (a *Agent) Chat(ctx context.Context, text string) error {
	release, err := a.enter()
	if err != nil {
		return err
	}
	defer release()

	a.state.RecordUserTurn(text)

	switch a.state.ConversationPhase() {
	case models.PhaseFormatSelection:
		return a.handleFormatSelectionReply(ctx, text)
	case models.PhaseMetadataCollection:
		return a.handleClassifiedUtterance(ctx, text)
	case models.PhaseValidationAnalysis:
		return a.handleClassifiedUtterance(ctx, text)
	case models.PhaseImprovementDecision:
		return a.handleImprovementReply(ctx, text)
	case models.PhaseNone:
		return a.handleGeneralQuery(ctx, text)
	default:
		return apperrors.NewInvariant("unknown conversation phase", nil)
	}
}

// singleFieldAsked reports whether the question currently open concerned
// exactly one metadata field, gating the Utterance Intent Classifier's
// DECLINE_FIELD outcome (§4.7.3).
func (a *Agent) singleFieldAsked() bool {
	return len(a.lastAskedFields) == 1
}

// handleClassifiedUtterance implements the Utterance Intent Classifier's
// effects (§4.7.3) shared by METADATA_COLLECTION and VALIDATION_ANALYSIS.
// The Retry Loop (§4.7.5) re-enters METADATA_COLLECTION itself when a
// correction needs user input, so a pending correction analysis (rather
// than the phase value) is what distinguishes a retry-driven decline —
// which abandons the correction attempt like CANCEL — from an initial,
// pre-conversion decline. VALIDATION_ANALYSIS gets the same override for a
// different reason (§4.7.2): "skip"/"cancel" during report narration means
// user-abandonment, not "proceed without metadata" as it does during the
// original METADATA_COLLECTION ask.
func (a *Agent) handleClassifiedUtterance(ctx context.Context, text string) error {
	inRetryAnalysis := a.pendingCorrectionAnalysis != nil
	abandonOnDecline := inRetryAnalysis || a.state.ConversationPhase() == models.PhaseValidationAnalysis

	intent := a.classifyIntent(ctx, text, a.singleFieldAsked())
	if abandonOnDecline && intent == IntentDeclineGlobal {
		intent = IntentCancel
	}

	switch intent {
	case IntentCancel:
		return a.state.SetTerminal(models.DispositionFailedAbandoned)

	case IntentDeclineGlobal:
		a.state.SetMetadataRequestPolicy(models.PolicyUserDeclined)
		a.state.RecordAssistantTurn("Okay, proceeding without further metadata.")
		return a.proceedPastFormatDetection(ctx)

	case IntentDeclineField:
		if len(a.lastAskedFields) == 1 {
			a.state.DeclineField(a.lastAskedFields[0])
		}
		return a.resumeAfterFieldResolution(ctx, inRetryAnalysis)

	case IntentRequestSequential:
		a.state.SetWantsSequential(true)
		return a.resumeAfterFieldResolution(ctx, inRetryAnalysis)

	case IntentProvide:
		return a.handleProvide(ctx, text, inRetryAnalysis)

	default: // UNCERTAIN
		a.state.RecordAssistantTurn("I wasn't able to tell what you meant — could you rephrase, or say \"skip\" to move on?")
		return nil
	}
}

func (a *Agent) handleProvide(ctx context.Context, text string, inRetryAnalysis bool) error {
	extraction := a.extractMetadata(ctx, text)
	filledNew := a.applyExtraction(extraction)
	a.state.SetUserProvidedInputThisAttempt(true)

	if !filledNew {
		a.state.RecordAssistantTurn("I couldn't find new details in that reply; proceeding with what I have.")
		if !inRetryAnalysis {
			a.state.SetMetadataRequestPolicy(models.PolicyUserDeclined)
		}
	}
	return a.resumeAfterFieldResolution(ctx, inRetryAnalysis)
}

// resumeAfterFieldResolution re-asks for any fields still outstanding in
// the current phase, or proceeds to the next pipeline stage once none
// remain.
func (a *Agent) resumeAfterFieldResolution(ctx context.Context, inRetryAnalysis bool) error {
	if inRetryAnalysis {
		return a.resumeRetryCorrectionInput(ctx)
	}

	remaining := a.remainingRequiredMinusDeclined()
	if len(remaining) == 0 {
		return a.proceedPastFormatDetection(ctx)
	}
	if a.state.WantsSequential() {
		remaining = remaining[:1]
	}
	a.lastAskedFields = remaining
	a.state.EnterPhase(models.PhaseMetadataCollection, buildMetadataQuestion(remaining))
	return nil
}

func (a *Agent) remainingRequiredMinusDeclined() []string {
	_, missing := a.registry.Validate(a.state.EffectiveMetadata())
	declined := a.state.DeclinedFields()
	var out []string
	for _, f := range missing {
		if !declined[f] {
			out = append(out, f)
		}
	}
	return out
}

// handleImprovementReply implements the free-text fallback for
// IMPROVEMENT_DECISION (§4.7.2): any reply that is not a recognized
// improve/accept answer is re-prompted once, then defaults to accept.
func (a *Agent) handleImprovementReply(ctx context.Context, text string) error {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "improve":
		return a.enterRetryIteration(ctx)
	case "accept":
		return a.state.SetTerminal(models.DispositionPassedAccepted)
	default:
		if a.improvementRepromptCount >= 1 {
			a.state.RecordAssistantTurn("I'll take that as accepting the output as-is.")
			return a.state.SetTerminal(models.DispositionPassedAccepted)
		}
		a.improvementRepromptCount++
		a.state.RecordAssistantTurn("Sorry, I need a clear 'improve' or 'accept' — which would you like?")
		return nil
	}
}

// handleGeneralQuery answers a free-form message sent while no question is
// open, using the LM Gateway with a deterministic fallback when it is
// unavailable.
func (a *Agent) handleGeneralQuery(ctx context.Context, text string) error {
	const system = "You are a helpful assistant for a neurophysiology-to-NWB conversion tool. " +
		"Answer briefly and refer the user to start a conversion if they haven't uploaded a file yet."

	if a.gateway != nil {
		reply, err := a.gateway.Complete(ctx, system, text, 0)
		if err == nil {
			a.state.RecordAssistantTurn(reply)
			return nil
		}
		a.log("WARNING", "LLM general-query response unavailable, using fallback", map[string]any{"error": err.Error()})
	}

	a.state.RecordAssistantTurn("Upload a recording to begin a conversion, or ask me about its current status.")
	return nil
}
