// Package metadata implements the Metadata Schema Registry: a declarative
// catalogue of NWB/DANDI fields used to generate extraction prompts and to
// validate completeness, in the same declarative-config style as
// Default*Config constructors elsewhere in this codebase, generalized
// from model/tool configuration to a domain field catalogue.
package metadata

import "strings"

// RequirementLevel classifies how essential a field is to a deposit-ready
// NWB file.
type RequirementLevel string

const (
	RequiredNWB   RequirementLevel = "REQUIRED_NWB"
	RequiredDANDI RequirementLevel = "REQUIRED_DANDI"
	Recommended   RequirementLevel = "RECOMMENDED"
	Optional      RequirementLevel = "OPTIONAL"
)

// Field describes one entry in the catalogue.
type Field struct {
	Name            string
	Requirement     RequirementLevel
	Description     string
	ExtractionHint  string
	// Normalize applies the field's deterministic normalization rule,
	// used both as the primary path and as the fallback when the LLM is
	// unavailable.
	Normalize func(raw string) string
}

// Confidence bands (§4.4): ≥80 auto-accept silently, 50-79 auto-accept with
// warning, <50 auto-accept but flag for post-conversion review.
const (
	ConfidenceSilentAccept = 80
	ConfidenceWarnAccept   = 50
)

// Band classifies a 0-100 confidence score.
type Band string

const (
	BandSilent Band = "SILENT_ACCEPT"
	BandWarn   Band = "WARN_ACCEPT"
	BandFlag   Band = "FLAG_FOR_REVIEW"
)

func ClassifyConfidence(score int) Band {
	switch {
	case score >= ConfidenceSilentAccept:
		return BandSilent
	case score >= ConfidenceWarnAccept:
		return BandWarn
	default:
		return BandFlag
	}
}

// Registry is the fixed field catalogue. It is defined explicitly here
// rather than re-derived at call sites, so the required/recommended split
// lives in exactly one place.
type Registry struct {
	fields []Field
}

func NewRegistry() *Registry {
	return &Registry{fields: []Field{
		{
			Name:           "subject_id",
			Requirement:    RequiredNWB,
			Description:    "identifier for the recorded subject",
			ExtractionHint: "a short identifier such as 'mouse001' or 'sub-01'",
			Normalize:      normalizeSubjectID,
		},
		{
			Name:           "species",
			Requirement:    RequiredNWB,
			Description:    "binomial species name of the subject",
			ExtractionHint: "colloquial species mention, e.g. 'mouse', 'C57BL/6 mouse', 'rat'",
			Normalize:      normalizeSpecies,
		},
		{
			Name:           "sex",
			Requirement:    RequiredNWB,
			Description:    "subject sex",
			ExtractionHint: "male/female/unknown/other",
			Normalize:      normalizeSex,
		},
		{
			Name:           "age",
			Requirement:    RequiredDANDI,
			Description:    "subject age at time of recording, ISO-8601 duration",
			ExtractionHint: "age phrase such as 'P60', '60 days', '8 weeks old'",
			Normalize:      normalizeAge,
		},
		{
			Name:           "experimenter",
			Requirement:    RequiredDANDI,
			Description:    "name(s) of the experimenter, 'Last, First' format",
			ExtractionHint: "a person's name, with or without a title (e.g. 'Dr. Jane Smith')",
			Normalize:      normalizeExperimenter,
		},
		{
			Name:           "institution",
			Requirement:    RequiredDANDI,
			Description:    "full institution name",
			ExtractionHint: "institution name or abbreviation, e.g. 'MIT'",
			Normalize:      normalizeInstitution,
		},
		{
			Name:           "session_description",
			Requirement:    Recommended,
			Description:    "free-text description of the recording session",
			ExtractionHint: "what was recorded, e.g. brain region or task",
			Normalize:      func(raw string) string { return strings.TrimSpace(raw) },
		},
		{
			Name:           "keywords",
			Requirement:    Optional,
			Description:    "free-text keywords describing the experiment",
			ExtractionHint: "short comma-separated tags",
			Normalize:      func(raw string) string { return strings.TrimSpace(raw) },
		},
	}}
}

func (r *Registry) Fields() []Field {
	return r.fields
}

func (r *Registry) Field(name string) (Field, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// RequiredFields returns the fields whose requirement level gates
// completeness (REQUIRED_NWB and REQUIRED_DANDI).
func (r *Registry) RequiredFields() []Field {
	var out []Field
	for _, f := range r.fields {
		if f.Requirement == RequiredNWB || f.Requirement == RequiredDANDI {
			out = append(out, f)
		}
	}
	return out
}

// Validate reports whether effective contains every required field,
// non-empty, and lists the names of the ones missing.
func (r *Registry) Validate(effective map[string]string) (isComplete bool, missing []string) {
	for _, f := range r.RequiredFields() {
		v, ok := effective[f.Name]
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, f.Name)
		}
	}
	return len(missing) == 0, missing
}

// NormalizeField applies the field's deterministic normalization rule. It
// is idempotent: NormalizeField(f, NormalizeField(f, x)) == NormalizeField(f, x).
func (r *Registry) NormalizeField(name, raw string) string {
	f, ok := r.Field(name)
	if !ok || f.Normalize == nil {
		return strings.TrimSpace(raw)
	}
	return f.Normalize(raw)
}
