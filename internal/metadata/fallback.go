package metadata

import "regexp"

// FallbackExtract performs a pattern-based extraction when the LLM gateway
// is unavailable, per §4.3's requirement that every LLM consumer has a
// deterministic, non-LLM fallback. It is intentionally conservative: it
// only reports fields it can locate with reasonable confidence.
func (r *Registry) FallbackExtract(text string) ExtractionResult {
	result := ExtractionResult{Fields: make(map[string]FieldExtraction)}

	if m := experimenterRe.FindStringSubmatch(text); m != nil {
		result.Fields["experimenter"] = FieldExtraction{
			Value:      r.NormalizeField("experimenter", m[1]),
			Confidence: 60,
			Reasoning:  "matched a name pattern in free text",
		}
	}
	if m := institutionRe.FindStringSubmatch(text); m != nil {
		result.Fields["institution"] = FieldExtraction{
			Value:      r.NormalizeField("institution", m[1]),
			Confidence: 60,
			Reasoning:  "matched 'from <institution>' pattern",
		}
	}
	if m := sexRe.FindStringSubmatch(text); m != nil {
		result.Fields["sex"] = FieldExtraction{
			Value:      r.NormalizeField("sex", m[1]),
			Confidence: 70,
			Reasoning:  "matched a sex keyword",
		}
	}
	if m := ageRe.FindStringSubmatch(text); m != nil {
		result.Fields["age"] = FieldExtraction{
			Value:      r.NormalizeField("age", m[1]),
			Confidence: 70,
			Reasoning:  "matched an age phrase",
		}
	}
	if m := strainSuffixRe.FindStringSubmatch(text); m != nil {
		result.Fields["species"] = FieldExtraction{
			Value:      r.NormalizeField("species", m[0]),
			Confidence: 65,
			Reasoning:  "matched a species keyword",
		}
	}
	if m := subjectIDRe.FindStringSubmatch(text); m != nil {
		result.Fields["subject_id"] = FieldExtraction{
			Value:      r.NormalizeField("subject_id", m[1]),
			Confidence: 75,
			Reasoning:  "matched 'subject <id>' pattern",
		}
	}

	return result
}

var (
	experimenterRe = regexp.MustCompile(`(?i)(Dr\.?\s+[A-Z][a-z]+\s+[A-Z][a-z]+|[A-Z][a-z]+\s+[A-Z][a-z]+)(?:\s+from\b)`)
	institutionRe  = regexp.MustCompile(`(?i)from\s+([A-Za-z][A-Za-z .,&]*?)(?:,|$|\.)`)
	sexRe          = regexp.MustCompile(`(?i)\b(male|female)\b`)
	ageRe          = regexp.MustCompile(`(?i)\b(P\d+|\d+\s*(?:day|week|month|year)s?)\b`)
	subjectIDRe    = regexp.MustCompile(`(?i)subject\s+([A-Za-z0-9_-]+)`)
)
