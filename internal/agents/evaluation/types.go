// Package evaluation implements the Evaluation Agent: validation via the
// external inspector, classification of findings into a three-level
// outcome, correction analysis, and report production. It never talks to
// the user directly.
//
// Follows the same "one external collaborator, typed request/response per
// operation" shape used across this codebase's agent packages, applied
// here to the inspector/report domain.
package evaluation

import (
	"context"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/models"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/state"
)

// Severity levels a normalized finding may carry.
const (
	SeverityCritical     = "CRITICAL"
	SeverityError        = "ERROR"
	SeverityWarning      = "WARNING"
	SeverityBestPractice = "BEST_PRACTICE"
)

// Inspector is the black-box NWB-Inspector-equivalent collaborator:
// checks an NWB file against schema and best-practice rules. Deliberately
// out of scope per the purpose statement; only its interface is specified
// here.
type Inspector interface {
	Inspect(ctx context.Context, nwbPath string) ([]state.Issue, error)
}

// Correction is one suggested fix produced by AnalyzeCorrections.
type Correction struct {
	Field       string `json:"field"`
	Value       string `json:"value,omitempty"`
	Reason      string `json:"reason"`
	IssueChecks []string `json:"issue_checks"`
}

// CorrectionAnalysis partitions validation issues into what the system can
// fix on its own and what requires a value only the user can supply.
type CorrectionAnalysis struct {
	AutoFixable       []Correction `json:"auto_fixable"`
	UserInputRequired []string     `json:"user_input_required"` // field names
	// Prioritized is the full issue list, DANDI-blocking (CRITICAL/ERROR)
	// first.
	Prioritized []state.Issue `json:"prioritized_issues"`
}

// ValidationResult is run_validation's output: the normalized findings and
// the outcome they produce.
type ValidationResult struct {
	Outcome models.ValidationOutcome
	Issues  []state.Issue
}

// Report is the deterministic structured report produced on every terminal
// transition.
type Report struct {
	NWBPath           string             `json:"nwb_path"`
	Checksum          string             `json:"checksum"`
	Outcome           models.ValidationOutcome `json:"outcome"`
	IssueCount        int                `json:"issue_count"`
	Issues            []state.Issue      `json:"issues"`
	CorrectionAttempt int                `json:"correction_attempt"`
	HumanSummary      string             `json:"human_summary"`
}
