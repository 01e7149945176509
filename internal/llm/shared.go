package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripCodeFences removes a single leading/trailing markdown code fence
// (``` or ```json) around raw model output, per §4.3's requirement that
// complete_structured tolerates fenced JSON.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine == "json" || firstLine == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseStructured parses raw text as a JSON object and checks it against
// schema's required top-level keys. This is a hand-rolled validator, not a
// full JSON-schema implementation — see DESIGN.md for why no third-party
// schema library is wired here.
func parseStructured(raw string, schema Schema) (map[string]any, error) {
	cleaned := stripCodeFences(raw)

	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMInvalidOutput, err)
	}

	required, _ := schema.Schema["required"].([]string)
	for _, field := range required {
		if _, ok := obj[field]; !ok {
			return nil, fmt.Errorf("%w: missing required field %q", ErrLLMInvalidOutput, field)
		}
	}

	return obj, nil
}
