package evaluation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/logging"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/models"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/state"
)

func testLogger() *logging.Logger {
	l, err := logging.New("development")
	if err != nil {
		panic(err)
	}
	return l
}

func TestRunValidation_PassedWithNoFindings(t *testing.T) {
	a := New(&MockInspector{Findings: map[string][]state.Issue{}}, testLogger())
	res := a.RunValidation(context.Background(), "out.nwb")
	assert.Equal(t, models.OutcomePassed, res.Outcome)
	assert.Empty(t, res.Issues)
}

func TestRunValidation_FailedOnCritical(t *testing.T) {
	findings := []state.Issue{{Severity: SeverityCritical, Message: "bad", CheckName: "x"}}
	a := New(&MockInspector{Findings: map[string][]state.Issue{"out.nwb": findings}}, testLogger())
	res := a.RunValidation(context.Background(), "out.nwb")
	assert.Equal(t, models.OutcomeFailed, res.Outcome)
}

func TestRunValidation_PassedWithIssuesOnWarningOnly(t *testing.T) {
	findings := []state.Issue{{Severity: SeverityWarning, Message: "minor", CheckName: "y"}}
	a := New(&MockInspector{Findings: map[string][]state.Issue{"out.nwb": findings}}, testLogger())
	res := a.RunValidation(context.Background(), "out.nwb")
	assert.Equal(t, models.OutcomePassedWithIssues, res.Outcome)
}

func TestRunValidation_InspectorFailureYieldsSyntheticCritical(t *testing.T) {
	a := New(&MockInspector{Fail: errors.New("timeout")}, testLogger())
	res := a.RunValidation(context.Background(), "out.nwb")
	require.Equal(t, models.OutcomeFailed, res.Outcome)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, SeverityCritical, res.Issues[0].Severity)
}

func TestAnalyzeCorrections_PartitionsAutoFixableAndUserRequired(t *testing.T) {
	issues := []state.Issue{
		{Severity: SeverityError, CheckName: "species_missing", Location: "/subject"},
		{Severity: SeverityError, CheckName: "subject_id_missing", Location: "/subject"},
		{Severity: SeverityCritical, CheckName: "experimenter_missing", Location: "/general"},
	}
	a := New(&MockInspector{}, testLogger())
	analysis := a.AnalyzeCorrections(issues, map[string]string{"subject_id": "mouse001 C57BL/6"})

	require.Len(t, analysis.AutoFixable, 1)
	assert.Equal(t, "species", analysis.AutoFixable[0].Field)
	assert.Equal(t, "Mus musculus", analysis.AutoFixable[0].Value)
	assert.ElementsMatch(t, []string{"subject_id", "experimenter"}, analysis.UserInputRequired)
}

func TestAnalyzeCorrections_PrioritizesDANDIBlockingFirst(t *testing.T) {
	issues := []state.Issue{
		{Severity: SeverityBestPractice, CheckName: "a"},
		{Severity: SeverityCritical, CheckName: "b"},
		{Severity: SeverityWarning, CheckName: "c"},
		{Severity: SeverityError, CheckName: "d"},
	}
	a := New(&MockInspector{}, testLogger())
	analysis := a.AnalyzeCorrections(issues, nil)
	severities := make([]string, len(analysis.Prioritized))
	for i, iss := range analysis.Prioritized {
		severities[i] = iss.Severity
	}
	assert.Equal(t, []string{SeverityCritical, SeverityError, SeverityWarning, SeverityBestPractice}, severities)
}

func TestGenerateReports_IsDeterministic(t *testing.T) {
	a := New(&MockInspector{}, testLogger())
	result := ValidationResult{Outcome: models.OutcomePassedWithIssues, Issues: []state.Issue{{Severity: SeverityWarning, CheckName: "w"}}}
	r1 := a.GenerateReports(result, "out.nwb", "abc123", 2)
	r2 := a.GenerateReports(result, "out.nwb", "abc123", 2)
	assert.Equal(t, r1, r2)
	assert.Contains(t, r1.HumanSummary, "1 issue")
	assert.Contains(t, r1.HumanSummary, "attempt 2")
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := []state.Issue{{Severity: "ERROR", CheckName: "x", Location: "/a"}, {Severity: "WARNING", CheckName: "y", Location: "/b"}}
	b := []state.Issue{{Severity: "WARNING", CheckName: "y", Location: "/b"}, {Severity: "ERROR", CheckName: "x", Location: "/a"}}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_DiffersOnContentChange(t *testing.T) {
	a := []state.Issue{{Severity: "ERROR", CheckName: "x", Location: "/a"}}
	b := []state.Issue{{Severity: "ERROR", CheckName: "x", Location: "/b"}}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
