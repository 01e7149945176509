package metadata

import (
	"fmt"
	"strings"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/llm"
)

// ExtractionResult is the parsed, validated output of a structured
// extraction completion: normalized values plus a confidence score and
// reasoning per field, as required by §4.4.
type ExtractionResult struct {
	Fields map[string]FieldExtraction
}

type FieldExtraction struct {
	Value      string
	Confidence int
	Reasoning  string
}

// GenerateExtractionPrompt produces the system+user prompt pair and output
// schema for complete_structured, asking the model to extract each field as
// stated and score confidence per field; normalization is left to
// ParseExtraction rather than to the model.
func (r *Registry) GenerateExtractionPrompt(userText string, alreadyKnown map[string]string) (system, user string, schema llm.Schema) {
	var needed []Field
	for _, f := range r.fields {
		if _, known := alreadyKnown[f.Name]; !known {
			needed = append(needed, f)
		}
	}

	var sb strings.Builder
	sb.WriteString("You extract NWB/DANDI metadata fields from a user's free-text description ")
	sb.WriteString("of a neurophysiology recording. For each requested field, return the value as ")
	sb.WriteString("stated by the user (do not normalize it yourself), a confidence score from 0 to 100, ")
	sb.WriteString("and a one-sentence reasoning. Omit fields the text does not mention.\n\nFields:\n")
	for _, f := range needed {
		sb.WriteString(fmt.Sprintf("- %s: %s (hint: %s)\n", f.Name, f.Description, f.ExtractionHint))
	}
	system = sb.String()
	user = userText

	properties := make(map[string]any, len(needed))
	for _, f := range needed {
		properties[f.Name] = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"value":      map[string]any{"type": "string"},
				"confidence": map[string]any{"type": "integer"},
				"reasoning":  map[string]any{"type": "string"},
			},
		}
	}
	schema = llm.Schema{
		Name: "MetadataExtraction",
		Schema: map[string]any{
			"type":       "object",
			"properties": properties,
		},
	}

	return system, user, schema
}

// ParseExtraction converts the raw structured-completion object into an
// ExtractionResult, normalizing every field's value through the registry's
// deterministic normalization rule.
func (r *Registry) ParseExtraction(obj map[string]any) ExtractionResult {
	result := ExtractionResult{Fields: make(map[string]FieldExtraction)}

	for name, raw := range obj {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		value, _ := entry["value"].(string)
		if value == "" {
			continue
		}
		confidence := 0
		switch c := entry["confidence"].(type) {
		case int:
			confidence = c
		case float64:
			confidence = int(c)
		}
		reasoning, _ := entry["reasoning"].(string)

		result.Fields[name] = FieldExtraction{
			Value:      r.NormalizeField(name, value),
			Confidence: confidence,
			Reasoning:  reasoning,
		}
	}

	return result
}
