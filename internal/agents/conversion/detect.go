package conversion

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/llm"
)

var detectSchema = llm.Schema{
	Name: "format_detection",
	Schema: map[string]any{
		"type":     "object",
		"required": []string{"format", "confidence", "evidence"},
		"properties": map[string]any{
			"format":     map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "integer"},
			"evidence":   map[string]any{"type": "string"},
		},
	},
}

const detectSystemPrompt = `You identify the neurophysiology acquisition format of a file path from its
name and sibling files. Respond only with the known formats: SpikeGLX,
OpenEphys, Neuropixels. If you cannot tell, set confidence below 50.`

// DetectFormat attempts LLM-based detection first, accepting only a
// confidence >= 70. On low confidence or LLM failure it falls back to
// ordered pattern matching over filenames and companion files.
func (a *Agent) DetectFormat(ctx context.Context, inputPath string, siblings []string) (DetectionResult, error) {
	if a.gateway != nil {
		if res, ok := a.detectByLLM(ctx, inputPath, siblings); ok {
			return res, nil
		}
	}
	return a.detectByPattern(inputPath, siblings), nil
}

func (a *Agent) detectByLLM(ctx context.Context, inputPath string, siblings []string) (DetectionResult, bool) {
	user := "file: " + filepath.Base(inputPath) + "\nsiblings: " + strings.Join(siblings, ", ")
	obj, err := a.gateway.CompleteStructured(ctx, detectSystemPrompt, user, detectSchema, 0)
	if err != nil {
		a.log("WARNING", "LLM format detection unavailable, falling back to pattern match", map[string]any{"error": err.Error()})
		return DetectionResult{}, false
	}

	format, _ := obj["format"].(string)
	confidence := toInt(obj["confidence"])
	evidence, _ := obj["evidence"].(string)
	if confidence < 70 {
		return DetectionResult{}, false
	}

	return DetectionResult{
		Format:     format,
		Confidence: confidence,
		Band:       bandFor(confidence),
		Evidence:   evidence,
	}, true
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

// detectByPattern applies the ordered filename/companion-file rules: SpikeGLX
// (*.ap.bin|*.lf.bin + sibling *.meta), Open Ephys (structure.oebin or
// settings.xml), Neuropixels (*.nidq.bin or imec* probe directories).
func (a *Agent) detectByPattern(inputPath string, siblings []string) DetectionResult {
	base := strings.ToLower(filepath.Base(inputPath))
	all := append([]string{base}, lower(siblings)...)

	hasSuffix := func(s, suffix string) bool { return strings.HasSuffix(s, suffix) }
	anyHasSuffix := func(suffix string) bool {
		for _, s := range all {
			if hasSuffix(s, suffix) {
				return true
			}
		}
		return false
	}
	anyContains := func(substr string) bool {
		for _, s := range all {
			if strings.Contains(s, substr) {
				return true
			}
		}
		return false
	}

	if (hasSuffix(base, ".ap.bin") || hasSuffix(base, ".lf.bin")) && anyHasSuffix(".meta") {
		return DetectionResult{Format: "SpikeGLX", Confidence: 95, Band: bandFor(95), Evidence: "*.ap.bin/*.lf.bin with sibling *.meta"}
	}
	if anyContains("structure.oebin") || anyContains("settings.xml") {
		return DetectionResult{Format: "OpenEphys", Confidence: 90, Band: bandFor(90), Evidence: "structure.oebin or settings.xml present"}
	}
	if anyHasSuffix(".nidq.bin") || anyContains("imec") {
		return DetectionResult{Format: "Neuropixels", Confidence: 85, Band: bandFor(85), Evidence: "*.nidq.bin or imec* probe directory present"}
	}

	// No pattern matched with adequate support: ambiguous, but still offer
	// whatever partial matches exist as ranked candidates.
	var candidates []Candidate
	if hasSuffix(base, ".ap.bin") || hasSuffix(base, ".lf.bin") {
		candidates = append(candidates, Candidate{Format: "SpikeGLX", Confidence: 40, Evidence: "filename suffix matches, no *.meta sibling found"})
	}
	if hasSuffix(base, ".bin") {
		candidates = append(candidates, Candidate{Format: "Neuropixels", Confidence: 30, Evidence: "generic .bin extension"})
	}
	return DetectionResult{Format: "", Confidence: 0, Band: "ambiguous", Candidates: candidates, Evidence: "no pattern matched with adequate support"}
}

func lower(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
