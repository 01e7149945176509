package state

import (
	"time"

	"github.com/google/uuid"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/apperrors"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/history"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/models"
)

// FormatCandidate is one possible format match reported by the Conversion
// Agent when detection is ambiguous.
type FormatCandidate struct {
	Format     string `json:"format"`
	Confidence int    `json:"confidence"`
	Evidence   string `json:"evidence"`
}

// BeginUpload stages path as the input for a new conversion, or as the
// pending re-upload per invariant 7 if the conversation is mid-dialogue.
func (s *WorkflowState) BeginUpload(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.IsBlocking() {
		return apperrors.ErrBusy
	}

	if s.status == models.StatusAwaitingUserInput && s.dialogue.Len() > 0 {
		s.pendingInputPath = path
		s.touchLocked()
		s.logLocked("INFO", "re-upload staged during active conversation", map[string]any{"path": path})
		s.notifyLocked(EventStatusChanged)
		return nil
	}

	if !(s.status == models.StatusIdle || s.status.IsTerminal()) {
		return apperrors.ErrInvalidState
	}

	s.inputPath = path
	s.status = models.StatusUploading
	s.touchLocked()
	s.notifyLocked(EventStatusChanged)
	return nil
}

// ConsumePendingInput moves pending_input_path into input_path, used when
// the pipeline resumes past format detection with a re-uploaded file
// (scenario 6).
func (s *WorkflowState) ConsumePendingInput() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingInputPath != "" {
		s.inputPath = s.pendingInputPath
		s.pendingInputPath = ""
		s.touchLocked()
	}
}

func (s *WorkflowState) SetFormatDetectionStarted() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.StatusUploading && s.status != models.StatusAwaitingUserInput {
		return apperrors.ErrInvalidState
	}
	s.status = models.StatusDetectingFormat
	s.touchLocked()
	s.notifyLocked(EventStatusChanged)
	return nil
}

// SetFormatDetectionResult records the outcome of detect_format. format is
// empty when ambiguous; candidates are the ranked alternatives offered to
// the user.
func (s *WorkflowState) SetFormatDetectionResult(format string, confidence int, candidates []FormatCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.StatusDetectingFormat && s.status != models.StatusAwaitingUserInput {
		return apperrors.ErrInvalidState
	}
	s.detectedFormat = format
	s.formatConfidence = confidence
	s.formatCandidates = candidates
	s.touchLocked()
	s.notifyLocked(EventStatusChanged)
	return nil
}

// EnterPhase transitions to AWAITING_USER_INPUT with the given phase and
// assistant message (invariant 2: AWAITING_USER_INPUT implies phase != NONE).
func (s *WorkflowState) EnterPhase(phase models.ConversationPhase, llmMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = models.StatusAwaitingUserInput
	s.conversationPhase = phase
	s.llmMessage = llmMessage
	s.recordAssistantLocked(llmMessage)
	s.touchLocked()
	s.notifyLocked(EventStatusChanged)
}

func (s *WorkflowState) recordAssistantLocked(text string) {
	if text == "" {
		return
	}
	s.dialogue.RecordAssistant(text, time.Now())
}

func (s *WorkflowState) RecordUserTurn(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialogue.RecordUser(text, time.Now())
	s.touchLocked()
}

func (s *WorkflowState) RecordAssistantTurn(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordAssistantLocked(text)
	s.touchLocked()
}

// BeginConversion transitions to CONVERTING, gated by DETECTING_FORMAT or
// a retry context (AWAITING_RETRY_APPROVAL / IMPROVEMENT_DECISION having
// just been resolved). Clears retry-attempt flags.
func (s *WorkflowState) BeginConversion() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	allowed := s.status == models.StatusDetectingFormat ||
		s.status == models.StatusAwaitingUserInput ||
		s.status == models.StatusAwaitingRetryApproval ||
		s.status == models.StatusValidating
	if !allowed {
		return apperrors.ErrInvalidState
	}

	s.status = models.StatusConverting
	s.conversationPhase = models.PhaseNone
	s.userProvidedInputThisAttempt = false
	s.autoCorrectionsAppliedThisAttempt = false
	s.touchLocked()
	s.notifyLocked(EventStatusChanged)
	return nil
}

// SetConversionProgress emits a conversion_progress event at the given
// milestone percentage and phase label, without changing status.
func (s *WorkflowState) SetConversionProgress(percent int, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked(EventConversionProgress)
	snap.ConversionProgress = percent
	snap.ConversionPhaseLabel = label
	for _, sub := range s.subscribers {
		sub(snap)
	}
}

func (s *WorkflowState) SetOutput(path, checksum string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputPath = path
	s.checksum = checksum
	s.touchLocked()
	s.notifyLocked(EventStatusChanged)
}

// DispatchValidationOutcome performs Outcome Dispatch (§4.7.6) as one atomic
// transition: it stores the outcome and issues and, in the same lock
// acquisition, applies the corresponding status/phase change, so no
// subscriber ever observes a snapshot with an outcome inconsistent with
// status (e.g. PASSED_WITH_ISSUES while status is still VALIDATING).
//
//   - PASSED, correction_attempt = 0  -> set_terminal(PASSED) + COMPLETED
//   - PASSED, correction_attempt > 0  -> set_terminal(PASSED_IMPROVED) + COMPLETED
//   - PASSED_WITH_ISSUES              -> enter_phase(IMPROVEMENT_DECISION, improvementMessage)
//   - FAILED                         -> AWAITING_RETRY_APPROVAL / IMPROVEMENT_DECISION, retryMessage
//
// Returns whether the conversion reached a terminal state and, if so, which
// disposition was recorded.
func (s *WorkflowState) DispatchValidationOutcome(outcome models.ValidationOutcome, issues []Issue, improvementMessage, retryMessage string) (terminal bool, disposition models.ValidationDisposition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.validationOutcome = outcome
	s.issues = issues

	switch outcome {
	case models.OutcomePassed:
		if s.correctionAttempt == 0 {
			disposition = models.DispositionPassed
		} else {
			disposition = models.DispositionPassedImproved
		}
		s.validationDisposition = disposition
		s.status = models.StatusCompleted
		s.conversationPhase = models.PhaseNone
		terminal = true
	case models.OutcomePassedWithIssues:
		s.status = models.StatusAwaitingUserInput
		s.conversationPhase = models.PhaseImprovementDecision
		s.llmMessage = improvementMessage
		s.recordAssistantLocked(improvementMessage)
	case models.OutcomeFailed:
		s.status = models.StatusAwaitingRetryApproval
		s.conversationPhase = models.PhaseImprovementDecision
		s.llmMessage = retryMessage
		s.recordAssistantLocked(retryMessage)
	}

	s.touchLocked()
	s.notifyLocked(EventValidationComplete)
	return terminal, disposition
}

// SetTerminal atomically sets COMPLETED or FAILED with the given
// disposition. Refuses if already terminal (invariant 6).
func (s *WorkflowState) SetTerminal(disposition models.ValidationDisposition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.IsTerminal() {
		return apperrors.ErrAlreadyTerminal
	}

	s.validationDisposition = disposition
	switch disposition {
	case models.DispositionPassed, models.DispositionPassedImproved, models.DispositionPassedAccepted:
		s.status = models.StatusCompleted
	default:
		s.status = models.StatusFailed
	}
	s.conversationPhase = models.PhaseNone
	s.touchLocked()
	s.notifyLocked(EventStatusChanged)
	return nil
}

// IncrementCorrectionAttempt bumps correction_attempt, failing with
// ErrRetryLimitExceeded once the safety cap is reached.
func (s *WorkflowState) IncrementCorrectionAttempt() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.correctionAttempt >= s.maxRetries {
		return apperrors.ErrRetryLimitExceeded
	}
	s.correctionAttempt++
	s.touchLocked()
	return nil
}

func (s *WorkflowState) touchLocked() {
	s.updatedAt = time.Now()
}

// Reset unconditionally reinitializes every mutable field to its default
// and emits a reset event. The field list here is exhaustive: a spec-level
// test enumerates every field reset() must clear.
func (s *WorkflowState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.notifyLocked(EventReset)
}

func (s *WorkflowState) resetLocked() {
	s.sessionID = uuid.New()
	s.inputPath = ""
	s.pendingInputPath = ""
	s.outputPath = ""
	s.checksum = ""
	s.status = models.StatusIdle
	s.conversationPhase = models.PhaseNone
	s.validationOutcome = models.OutcomeNone
	s.validationDisposition = models.DispositionNone
	s.dialogue = history.NewInMemoryHistory()
	s.llmMessage = ""
	s.userProvided = make(map[string]string)
	s.autoExtracted = make(map[string]string)
	s.declinedFields = make(map[string]bool)
	s.metadataRequestPolicy = models.PolicyNotAsked
	s.wantsSequential = false
	s.correctionAttempt = 0
	s.previousIssuesFingerprint = ""
	s.userProvidedInputThisAttempt = false
	s.autoCorrectionsAppliedThisAttempt = false
	s.consecutiveNoProgressAttempts = 0
	s.issues = nil
	s.detectedFormat = ""
	s.formatConfidence = 0
	s.formatCandidates = nil
	s.log = nil
	now := time.Now()
	s.createdAt = now
	s.updatedAt = now
}
