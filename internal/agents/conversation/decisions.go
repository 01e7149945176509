package conversation

import (
	"context"
	"strings"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/apperrors"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/models"
)

// DecideImprovement implements the decide_improvement external-interface
// action: valid only once Outcome Dispatch has entered IMPROVEMENT_DECISION
// from a PASSED_WITH_ISSUES outcome (status remains AWAITING_USER_INPUT in
// that branch, distinguishing it from the FAILED branch's decide_retry).
func (a *Agent) DecideImprovement(ctx context.Context, choice string) error {
	release, err := a.enter()
	if err != nil {
		return err
	}
	defer release()

	if a.state.ConversationPhase() != models.PhaseImprovementDecision || a.state.Status() != models.StatusAwaitingUserInput {
		return apperrors.ErrInvalidState
	}

	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "improve":
		return a.enterRetryIteration(ctx)
	case "accept":
		return a.state.SetTerminal(models.DispositionPassedAccepted)
	default:
		return apperrors.NewUserRecoverable("choice must be 'improve' or 'accept'", nil)
	}
}

// DecideRetry implements decide_retry: valid only while AWAITING_RETRY_APPROVAL,
// the status Outcome Dispatch sets on a FAILED outcome.
func (a *Agent) DecideRetry(ctx context.Context, choice string) error {
	release, err := a.enter()
	if err != nil {
		return err
	}
	defer release()

	if a.state.Status() != models.StatusAwaitingRetryApproval {
		return apperrors.ErrInvalidState
	}

	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "approve":
		return a.enterRetryIteration(ctx)
	case "decline":
		return a.state.SetTerminal(models.DispositionFailedDeclined)
	default:
		return apperrors.NewUserRecoverable("choice must be 'approve' or 'decline'", nil)
	}
}
