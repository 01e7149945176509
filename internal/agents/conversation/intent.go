package conversation

import (
	"context"
	"strings"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/llm"
)

// Intent is the Utterance Intent Classifier's output (§4.7.3).
type Intent string

const (
	IntentProvide           Intent = "PROVIDE"
	IntentDeclineGlobal     Intent = "DECLINE_GLOBAL"
	IntentDeclineField      Intent = "DECLINE_FIELD"
	IntentRequestSequential Intent = "REQUEST_SEQUENTIAL"
	IntentCancel            Intent = "CANCEL"
	IntentUncertain         Intent = "UNCERTAIN"
)

var intentSchema = llm.Schema{
	Name: "utterance_intent",
	Schema: map[string]any{
		"type":     "object",
		"required": []string{"intent", "confidence", "reasoning"},
		"properties": map[string]any{
			"intent":     map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "integer"},
			"reasoning":  map[string]any{"type": "string"},
		},
	},
}

const intentSystemPrompt = `Classify a user's reply during a metadata-collection conversation into
exactly one of: PROVIDE, DECLINE_GLOBAL, DECLINE_FIELD, REQUEST_SEQUENTIAL, CANCEL, UNCERTAIN.
PROVIDE means the reply contains concrete metadata values. DECLINE_GLOBAL means the user wants to
skip providing metadata entirely. DECLINE_FIELD means the user wants to skip only the single field
just asked. REQUEST_SEQUENTIAL means the user wants to be asked one field at a time. CANCEL means
the user wants to abandon the conversion entirely.`

// classifyIntent consults the LLM gateway first, accepting its answer only
// at confidence >= 60; otherwise falls back to keyword matching. singleField
// reports whether the just-asked question concerned exactly one field,
// which gates whether DECLINE_FIELD is a valid outcome.
func (a *Agent) classifyIntent(ctx context.Context, text string, singleField bool) Intent {
	if a.gateway != nil {
		if intent, ok := a.classifyByLLM(ctx, text); ok {
			return normalizeFieldDecline(intent, singleField)
		}
	}
	return normalizeFieldDecline(classifyByKeyword(text), singleField)
}

func (a *Agent) classifyByLLM(ctx context.Context, text string) (Intent, bool) {
	obj, err := a.gateway.CompleteStructured(ctx, intentSystemPrompt, text, intentSchema, 0)
	if err != nil {
		a.log("WARNING", "LLM intent classification unavailable, falling back to keywords", map[string]any{"error": err.Error()})
		return "", false
	}
	confidence := toInt(obj["confidence"])
	if confidence < 60 {
		return "", false
	}
	intentStr, _ := obj["intent"].(string)
	return Intent(intentStr), true
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// normalizeFieldDecline downgrades DECLINE_FIELD to DECLINE_GLOBAL when more
// than one field was asked about, since "skip this one" is only meaningful
// for a single-field question.
func normalizeFieldDecline(intent Intent, singleField bool) Intent {
	if intent == IntentDeclineField && !singleField {
		return IntentDeclineGlobal
	}
	return intent
}

var (
	cancelWords            = []string{"cancel", "quit", "stop", "abort", "exit"}
	declineGlobalPhrases    = []string{"skip for now", "just proceed", "no metadata", "i don't know", "i dont know"}
	declineFieldPhrases     = []string{"skip this one", "skip that one", "skip this field"}
	sequentialPhrases       = []string{"ask one by one", "one at a time", "one by one"}
)

// classifyByKeyword matches fixed lexicons per intent. Checked in priority
// order: cancel first (most consequential), then explicit field-level
// decline, then global decline, then sequential request, then a loose
// metadata-shaped heuristic for PROVIDE, otherwise UNCERTAIN.
func classifyByKeyword(text string) Intent {
	lower := strings.ToLower(text)

	for _, w := range cancelWords {
		if containsWord(lower, w) {
			return IntentCancel
		}
	}
	for _, p := range declineFieldPhrases {
		if strings.Contains(lower, p) {
			return IntentDeclineField
		}
	}
	for _, p := range declineGlobalPhrases {
		if strings.Contains(lower, p) {
			return IntentDeclineGlobal
		}
	}
	for _, p := range sequentialPhrases {
		if strings.Contains(lower, p) {
			return IntentRequestSequential
		}
	}
	if looksLikeMetadata(lower) {
		return IntentProvide
	}
	return IntentUncertain
}

func containsWord(haystack, word string) bool {
	fields := strings.Fields(haystack)
	for _, f := range fields {
		if strings.Trim(f, ".,!?") == word {
			return true
		}
	}
	return false
}

// looksLikeMetadata is a loose heuristic: a reply of reasonable length
// containing digits (ages, ids) or common metadata nouns is treated as an
// attempt to provide values rather than small talk.
func looksLikeMetadata(lower string) bool {
	if len(strings.Fields(lower)) < 2 {
		return false
	}
	keywords := []string{"mouse", "rat", "subject", "institute", "university", "dr.", "male", "female", "p6", "year", "month", "week", "day"}
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return strings.ContainsAny(lower, "0123456789")
}
