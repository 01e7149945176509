package conversation

import (
	"fmt"
	"strings"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/state"
)

// buildImprovementMessage renders the question asked on a PASSED_WITH_ISSUES
// outcome: summarize the non-blocking findings and ask whether to improve
// or accept.
func buildImprovementMessage(issues []state.Issue) string {
	if len(issues) == 0 {
		return "Validation passed with no findings to review. Improve or accept?"
	}
	return fmt.Sprintf(
		"Validation passed, but found %d issue(s) worth reviewing: %s. Would you like me to try to improve the file, or accept it as-is?",
		len(issues), summarizeIssues(issues))
}

// buildRetryApprovalMessage renders the question asked on a FAILED outcome.
func buildRetryApprovalMessage(issues []state.Issue) string {
	return fmt.Sprintf(
		"Validation failed with %d blocking issue(s): %s. Approve a correction attempt, or decline and stop here?",
		len(issues), summarizeIssues(issues))
}

func summarizeIssues(issues []state.Issue) string {
	max := len(issues)
	if max > 3 {
		max = 3
	}
	parts := make([]string, max)
	for i := 0; i < max; i++ {
		parts[i] = fmt.Sprintf("%s: %s", issues[i].Severity, issues[i].Message)
	}
	summary := strings.Join(parts, "; ")
	if len(issues) > max {
		summary += fmt.Sprintf("; and %d more", len(issues)-max)
	}
	return summary
}
