package conversation

import (
	"context"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/metadata"
)

// extractMetadata runs schema-driven extraction over userText: LLM-based
// first, falling back to the registry's deterministic pattern extraction on
// any LLM failure (§4.3's "every consumer has a pattern-based fallback").
func (a *Agent) extractMetadata(ctx context.Context, userText string) metadata.ExtractionResult {
	alreadyKnown := a.state.EffectiveMetadata()

	if a.gateway != nil {
		system, user, schema := a.registry.GenerateExtractionPrompt(userText, alreadyKnown)
		obj, err := a.gateway.CompleteStructured(ctx, system, user, schema, 0)
		if err == nil {
			return a.registry.ParseExtraction(obj)
		}
		a.log("WARNING", "LLM metadata extraction unavailable, falling back to pattern match", map[string]any{"error": err.Error()})
	}

	return a.registry.FallbackExtract(userText)
}

// applyExtraction merges an extraction result into user_provided per the
// confidence bands of §4.4, logging a warning for the WARN_ACCEPT band and
// a flag for post-conversion review for FLAG_FOR_REVIEW. It reports
// whether any new required field was filled in, used to decide whether a
// PROVIDE utterance with no useful content should be treated like a
// decline (§4.7.3).
func (a *Agent) applyExtraction(result metadata.ExtractionResult) (filledNewRequired bool) {
	if len(result.Fields) == 0 {
		return false
	}

	_, missingBefore := a.registry.Validate(a.state.EffectiveMetadata())
	missingSet := make(map[string]bool, len(missingBefore))
	for _, f := range missingBefore {
		missingSet[f] = true
	}

	fields := make(map[string]string, len(result.Fields))
	for name, extraction := range result.Fields {
		fields[name] = extraction.Value
		switch metadata.ClassifyConfidence(extraction.Confidence) {
		case metadata.BandWarn:
			a.log("WARNING", "metadata field accepted with moderate confidence", map[string]any{
				"field": name, "confidence": extraction.Confidence, "value": extraction.Value,
			})
		case metadata.BandFlag:
			a.log("WARNING", "metadata field flagged for post-conversion review", map[string]any{
				"field": name, "confidence": extraction.Confidence, "value": extraction.Value,
			})
		}
		if missingSet[name] {
			filledNewRequired = true
		}
	}

	a.state.MergeUserProvided(fields)
	return filledNewRequired
}
