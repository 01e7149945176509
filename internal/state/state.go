// Package state implements the Workflow State: the single authoritative
// record of the conversion in flight. All mutations go through the
// transition methods below, which obtain one process-wide lock so
// concurrent HTTP handlers never observe a half-applied transition.
//
// Generalized from a workflow-engine-local struct mutated by code running
// on a deterministic scheduler to a plain mutex-guarded struct, since this
// domain has no workflow engine underneath it.
package state

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/history"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/metadata"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/models"
)

// LogEntry is one entry in the state's bounded append-only log (§7: every
// error recorded includes level, message, structured context, timestamp).
type LogEntry struct {
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// maxLogEntries bounds the state log to a rolling window sufficient for
// one conversion (§7).
const maxLogEntries = 500

// Issue is a normalized validation finding as produced by the Evaluation
// Agent.
type Issue struct {
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Location  string `json:"location"`
	CheckName string `json:"check_name"`
}

// EventType distinguishes the push-channel event carried by a Snapshot.
type EventType string

const (
	EventStatusChanged      EventType = "status_changed"
	EventValidationComplete EventType = "validation_complete"
	EventConversionProgress EventType = "conversion_progress"
	EventReset              EventType = "reset"
)

// Snapshot is the consistent, post-transition view emitted to subscribers
// and returned by status(). It never straddles two states: Outcome Dispatch
// (§4.7.6) guarantees there is no snapshot with
// validation_outcome=PASSED_WITH_ISSUES and status in {VALIDATING, CONVERTING}.
type Snapshot struct {
	Event                EventType                    `json:"event"`
	SessionID            uuid.UUID                    `json:"session_id"`
	Status               models.ConversionStatus       `json:"status"`
	ConversationPhase    models.ConversationPhase      `json:"conversation_phase"`
	ValidationOutcome    models.ValidationOutcome       `json:"validation_outcome"`
	ValidationDisposition models.ValidationDisposition `json:"validation_disposition"`
	LLMMessage           string                        `json:"llm_message"`
	ConversationHistory  []history.Turn                `json:"conversation_history"`
	MetadataMissing      []string                      `json:"metadata_missing"`
	CorrectionAttempt    int                           `json:"correction_attempt"`
	OutputReady          bool                          `json:"output_ready"`
	CanRetry             bool                          `json:"can_retry"`
	IssueCount           int                           `json:"issue_count"`
	ConversionProgress   int                           `json:"conversion_progress,omitempty"`
	ConversionPhaseLabel string                        `json:"conversion_phase_label,omitempty"`
}

// Subscriber receives every state-change event in transition order.
type Subscriber func(Snapshot)

// WorkflowState is the single authoritative record of the conversion in
// flight. Exactly one instance exists per process (invariant: at most one
// active conversion).
type WorkflowState struct {
	mu sync.Mutex

	sessionID uuid.UUID

	// Identity & paths
	inputPath        string
	pendingInputPath string
	outputPath       string
	checksum         string

	// Status
	status                models.ConversionStatus
	conversationPhase     models.ConversationPhase
	validationOutcome     models.ValidationOutcome
	validationDisposition models.ValidationDisposition

	// Dialogue
	dialogue   history.DialogueHistory
	llmMessage string

	// Format detection
	detectedFormat   string
	formatConfidence int
	formatCandidates []FormatCandidate

	// Metadata
	userProvided   map[string]string
	autoExtracted  map[string]string
	declinedFields map[string]bool

	// Request policy
	metadataRequestPolicy models.MetadataRequestPolicy
	wantsSequential       bool

	// Retry bookkeeping
	correctionAttempt                 int
	maxRetries                        int
	previousIssuesFingerprint         string
	userProvidedInputThisAttempt      bool
	autoCorrectionsAppliedThisAttempt bool
	consecutiveNoProgressAttempts     int
	issues                            []Issue

	// Logs
	log []LogEntry

	createdAt time.Time
	updatedAt time.Time

	subscribers []Subscriber
	registry    *metadata.Registry
}

// New constructs an idle WorkflowState. maxRetries is the safety cap on
// correction_attempt (recommended 10).
func New(maxRetries int) *WorkflowState {
	s := &WorkflowState{registry: metadata.NewRegistry()}
	s.maxRetries = maxRetries
	s.resetLocked()
	return s
}

func (s *WorkflowState) Subscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, sub)
}

// notifyLocked emits ev to every subscriber. Must be called while holding
// s.mu so that the snapshot it carries is consistent with the transition
// that produced it; the subscriber callbacks themselves run synchronously,
// matching the ordering guarantee of §5 (events are emitted in transition
// order and delivered in that order to each subscriber).
func (s *WorkflowState) notifyLocked(event EventType) {
	snap := s.snapshotLocked(event)
	for _, sub := range s.subscribers {
		sub(snap)
	}
}

func (s *WorkflowState) snapshotLocked(event EventType) Snapshot {
	_, missing := s.registry.Validate(s.effectiveLocked())

	return Snapshot{
		Event:                 event,
		SessionID:             s.sessionID,
		Status:                s.status,
		ConversationPhase:     s.conversationPhase,
		ValidationOutcome:     s.validationOutcome,
		ValidationDisposition: s.validationDisposition,
		LLMMessage:            s.llmMessage,
		ConversationHistory:   s.dialogue.Turns(),
		MetadataMissing:       missing,
		CorrectionAttempt:     s.correctionAttempt,
		OutputReady:           s.outputPath != "",
		CanRetry:              s.status == models.StatusAwaitingRetryApproval,
		IssueCount:            len(s.issues),
	}
}

// effectiveLocked computes effective = auto_extracted ∪ user_provided, with
// user values overriding on key collision (invariant 5).
func (s *WorkflowState) effectiveLocked() map[string]string {
	effective := make(map[string]string, len(s.autoExtracted)+len(s.userProvided))
	for k, v := range s.autoExtracted {
		effective[k] = v
	}
	for k, v := range s.userProvided {
		effective[k] = v
	}
	return effective
}

func (s *WorkflowState) logLocked(level, message string, ctx map[string]any) {
	entry := LogEntry{Level: level, Message: message, Context: ctx, Timestamp: time.Now()}
	s.log = append(s.log, entry)
	if len(s.log) > maxLogEntries {
		s.log = s.log[len(s.log)-maxLogEntries:]
	}
}

// Log appends a structured entry to the state's audit trail. Exposed so
// agents can record AgentRecoverable fallbacks without going through a
// full transition.
func (s *WorkflowState) Log(level, message string, ctx map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logLocked(level, message, ctx)
}

func (s *WorkflowState) Logs() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEntry, len(s.log))
	copy(out, s.log)
	return out
}
