package state

import (
	"github.com/google/uuid"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/history"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/metadata"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/models"
)

// Snapshot returns a consistent point-in-time view without mutating state
// (status() must never mutate state).
func (s *WorkflowState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(EventStatusChanged)
}

func (s *WorkflowState) SessionID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *WorkflowState) Status() models.ConversionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *WorkflowState) ConversationPhase() models.ConversationPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationPhase
}

func (s *WorkflowState) InputPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputPath
}

func (s *WorkflowState) PendingInputPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingInputPath
}

func (s *WorkflowState) OutputPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputPath
}

func (s *WorkflowState) Checksum() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checksum
}

func (s *WorkflowState) DetectedFormat() (format string, confidence int, candidates []FormatCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detectedFormat, s.formatConfidence, s.formatCandidates
}

func (s *WorkflowState) EffectiveMetadata() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveLocked()
}

func (s *WorkflowState) AutoExtractedMetadata() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.autoExtracted))
	for k, v := range s.autoExtracted {
		out[k] = v
	}
	return out
}

// MergeAutoExtracted merges Conversion-Agent-discovered fields into
// auto_extracted (does not override user_provided on read per invariant 5,
// since effective() already prioritizes user values).
func (s *WorkflowState) MergeAutoExtracted(fields map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range fields {
		s.autoExtracted[k] = v
	}
	s.touchLocked()
}

// MergeUserProvided merges schema-driven-extraction output into
// user_provided (invariant 5: user values override on key collision).
func (s *WorkflowState) MergeUserProvided(fields map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range fields {
		s.userProvided[k] = v
	}
	s.touchLocked()
}

func (s *WorkflowState) DeclineField(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declinedFields[name] = true
	s.touchLocked()
}

func (s *WorkflowState) DeclinedFields() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.declinedFields))
	for k, v := range s.declinedFields {
		out[k] = v
	}
	return out
}

func (s *WorkflowState) MetadataRequestPolicy() models.MetadataRequestPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadataRequestPolicy
}

func (s *WorkflowState) SetMetadataRequestPolicy(p models.MetadataRequestPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadataRequestPolicy = p
	s.touchLocked()
}

func (s *WorkflowState) WantsSequential() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wantsSequential
}

func (s *WorkflowState) SetWantsSequential(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wantsSequential = v
	s.touchLocked()
}

func (s *WorkflowState) CorrectionAttempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.correctionAttempt
}

func (s *WorkflowState) PreviousIssuesFingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previousIssuesFingerprint
}

func (s *WorkflowState) SetPreviousIssuesFingerprint(fp string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previousIssuesFingerprint = fp
	s.touchLocked()
}

func (s *WorkflowState) UserProvidedInputThisAttempt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userProvidedInputThisAttempt
}

func (s *WorkflowState) SetUserProvidedInputThisAttempt(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userProvidedInputThisAttempt = v
	s.touchLocked()
}

func (s *WorkflowState) AutoCorrectionsAppliedThisAttempt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoCorrectionsAppliedThisAttempt
}

func (s *WorkflowState) SetAutoCorrectionsAppliedThisAttempt(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoCorrectionsAppliedThisAttempt = v
	s.touchLocked()
}

func (s *WorkflowState) ConsecutiveNoProgressAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveNoProgressAttempts
}

func (s *WorkflowState) IncrementConsecutiveNoProgress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveNoProgressAttempts++
	return s.consecutiveNoProgressAttempts
}

func (s *WorkflowState) ResetConsecutiveNoProgress() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveNoProgressAttempts = 0
}

func (s *WorkflowState) Issues() []Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

func (s *WorkflowState) ValidationOutcome() models.ValidationOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validationOutcome
}

func (s *WorkflowState) ValidationDisposition() models.ValidationDisposition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validationDisposition
}

// LastTurn reports the most recent dialogue turn. The Metadata Request
// Gate does not call it: its fourth condition is covered by the
// metadata_request_policy check.
func (s *WorkflowState) LastTurn() (history.Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialogue.LastTurn()
}

// Registry exposes the Metadata Schema Registry instance used for
// completeness checks, so agents validate against the same catalogue the
// state itself uses for snapshots.
func (s *WorkflowState) Registry() *metadata.Registry {
	return s.registry
}
