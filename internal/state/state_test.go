package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/models"
)

func TestNew_StartsIdle(t *testing.T) {
	s := New(10)
	assert.Equal(t, models.StatusIdle, s.Status())
	assert.Equal(t, models.PhaseNone, s.ConversationPhase())
}

func TestBeginUpload_RejectsWhileBlocking(t *testing.T) {
	s := New(10)
	require.NoError(t, s.BeginUpload("a.bin"))
	require.NoError(t, s.SetFormatDetectionStarted())

	err := s.BeginUpload("b.bin")
	assert.Error(t, err)
}

func TestBeginUpload_StagesPendingDuringAwaitingInputWithHistory(t *testing.T) {
	s := New(10)
	require.NoError(t, s.BeginUpload("a.bin"))
	s.EnterPhase(models.PhaseMetadataCollection, "please provide metadata")
	s.RecordUserTurn("some answer") // gives the dialogue non-empty history

	err := s.BeginUpload("b.bin")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingUserInput, s.Status())
	assert.Equal(t, "b.bin", s.PendingInputPath())
	assert.Equal(t, "a.bin", s.InputPath())
}

func TestEnterPhase_SetsAwaitingUserInputAndNonNonePhase(t *testing.T) {
	s := New(10)
	s.EnterPhase(models.PhaseFormatSelection, "which format?")
	assert.Equal(t, models.StatusAwaitingUserInput, s.Status())
	assert.NotEqual(t, models.PhaseNone, s.ConversationPhase())
}

func TestSetTerminal_RefusesWhenAlreadyTerminal(t *testing.T) {
	s := New(10)
	require.NoError(t, s.BeginUpload("a.bin"))
	require.NoError(t, s.SetFormatDetectionStarted())
	require.NoError(t, s.BeginConversion())
	require.NoError(t, s.SetTerminal(models.DispositionPassed))

	err := s.SetTerminal(models.DispositionFailedDeclined)
	assert.Error(t, err)
	// Disposition from the first call is preserved.
	assert.Equal(t, models.DispositionPassed, s.ValidationDisposition())
}

func TestIncrementCorrectionAttempt_FailsAtCap(t *testing.T) {
	s := New(2)
	require.NoError(t, s.IncrementCorrectionAttempt())
	require.NoError(t, s.IncrementCorrectionAttempt())

	err := s.IncrementCorrectionAttempt()
	assert.Error(t, err)
	assert.Equal(t, 2, s.CorrectionAttempt())
}

func TestReset_ClearsEveryMutableField(t *testing.T) {
	s := New(10)
	require.NoError(t, s.BeginUpload("a.bin"))
	s.EnterPhase(models.PhaseMetadataCollection, "hi")
	s.RecordUserTurn("hello")
	s.MergeUserProvided(map[string]string{"subject_id": "mouse001"})
	s.DeclineField("species")
	s.SetMetadataRequestPolicy(models.PolicyAskedOnce)
	s.SetWantsSequential(true)
	require.NoError(t, s.IncrementCorrectionAttempt())
	s.SetPreviousIssuesFingerprint("abc")
	s.SetUserProvidedInputThisAttempt(true)
	s.SetAutoCorrectionsAppliedThisAttempt(true)
	s.IncrementConsecutiveNoProgress()
	s.SetOutput("out.nwb", "deadbeef")
	s.Log("WARNING", "something happened", nil)

	s.Reset()

	assert.Equal(t, models.StatusIdle, s.Status())
	assert.Equal(t, models.PhaseNone, s.ConversationPhase())
	assert.Equal(t, models.OutcomeNone, s.ValidationOutcome())
	assert.Equal(t, models.DispositionNone, s.ValidationDisposition())
	assert.Equal(t, "", s.InputPath())
	assert.Equal(t, "", s.PendingInputPath())
	assert.Equal(t, "", s.OutputPath())
	assert.Equal(t, "", s.Checksum())
	assert.Empty(t, s.EffectiveMetadata())
	assert.Empty(t, s.DeclinedFields())
	assert.Equal(t, models.PolicyNotAsked, s.MetadataRequestPolicy())
	assert.False(t, s.WantsSequential())
	assert.Equal(t, 0, s.CorrectionAttempt())
	assert.Equal(t, "", s.PreviousIssuesFingerprint())
	assert.False(t, s.UserProvidedInputThisAttempt())
	assert.False(t, s.AutoCorrectionsAppliedThisAttempt())
	assert.Equal(t, 0, s.ConsecutiveNoProgressAttempts())
	assert.Empty(t, s.Issues())
	assert.Empty(t, s.Logs())
	_, ok := s.LastTurn()
	assert.False(t, ok)
}

func TestReset_IsIdempotentAcrossTwoCalls(t *testing.T) {
	s := New(10)
	require.NoError(t, s.BeginUpload("a.bin"))
	s.Reset()
	first := s.Snapshot()
	first.SessionID = [16]byte{} // session id intentionally varies; ignore it
	s.Reset()
	second := s.Snapshot()
	second.SessionID = [16]byte{}
	assert.Equal(t, first, second)
}

func TestSnapshot_DoesNotMutateState(t *testing.T) {
	s := New(10)
	require.NoError(t, s.BeginUpload("a.bin"))
	before := s.Status()
	_ = s.Snapshot()
	assert.Equal(t, before, s.Status())
}

func TestDispatchValidationOutcome_NeverStraddlesConvertingAndPassedWithIssues(t *testing.T) {
	s := New(10)
	require.NoError(t, s.BeginUpload("a.bin"))
	require.NoError(t, s.SetFormatDetectionStarted())
	require.NoError(t, s.BeginConversion())

	var snapshots []Snapshot
	s.Subscribe(func(snap Snapshot) { snapshots = append(snapshots, snap) })

	s.DispatchValidationOutcome(models.OutcomePassedWithIssues, nil, "please review", "")
	for _, snap := range snapshots {
		if snap.ValidationOutcome == models.OutcomePassedWithIssues {
			assert.NotContains(t, []models.ConversionStatus{models.StatusValidating, models.StatusConverting}, snap.Status)
		}
	}
}

func TestDispatchValidationOutcome_PassedFirstAttemptIsPlainPassed(t *testing.T) {
	s := New(10)
	require.NoError(t, s.BeginUpload("a.bin"))
	require.NoError(t, s.SetFormatDetectionStarted())
	require.NoError(t, s.BeginConversion())

	terminal, disposition := s.DispatchValidationOutcome(models.OutcomePassed, nil, "", "")
	assert.True(t, terminal)
	assert.Equal(t, models.DispositionPassed, disposition)
	assert.Equal(t, models.StatusCompleted, s.Status())
}

func TestDispatchValidationOutcome_PassedAfterRetryIsImproved(t *testing.T) {
	s := New(10)
	require.NoError(t, s.BeginUpload("a.bin"))
	require.NoError(t, s.SetFormatDetectionStarted())
	require.NoError(t, s.BeginConversion())
	require.NoError(t, s.IncrementCorrectionAttempt())

	terminal, disposition := s.DispatchValidationOutcome(models.OutcomePassed, nil, "", "")
	assert.True(t, terminal)
	assert.Equal(t, models.DispositionPassedImproved, disposition)
}

func TestDispatchValidationOutcome_FailedEntersRetryApproval(t *testing.T) {
	s := New(10)
	require.NoError(t, s.BeginUpload("a.bin"))
	require.NoError(t, s.SetFormatDetectionStarted())
	require.NoError(t, s.BeginConversion())

	terminal, _ := s.DispatchValidationOutcome(models.OutcomeFailed, nil, "", "validation failed, approve a retry?")
	assert.False(t, terminal)
	assert.Equal(t, models.StatusAwaitingRetryApproval, s.Status())
	assert.Equal(t, models.PhaseImprovementDecision, s.ConversationPhase())
}
