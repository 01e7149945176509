package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_CompleteWhenAllRequiredPresent(t *testing.T) {
	r := NewRegistry()
	effective := map[string]string{
		"subject_id":   "mouse001",
		"species":      "Mus musculus",
		"sex":          "M",
		"age":          "P60D",
		"experimenter": "Smith, Jane",
		"institution":  "Massachusetts Institute of Technology",
	}
	complete, missing := r.Validate(effective)
	assert.True(t, complete)
	assert.Empty(t, missing)
}

func TestValidate_IncompleteListsMissingRequiredFields(t *testing.T) {
	r := NewRegistry()
	complete, missing := r.Validate(map[string]string{"subject_id": "mouse001"})
	assert.False(t, complete)
	assert.ElementsMatch(t, []string{"species", "sex", "age", "experimenter", "institution"}, missing)
}

func TestValidate_BlankValueCountsAsMissing(t *testing.T) {
	r := NewRegistry()
	complete, missing := r.Validate(map[string]string{
		"subject_id": "mouse001", "species": "  ", "sex": "M", "age": "P60D",
		"experimenter": "Smith, Jane", "institution": "MIT",
	})
	assert.False(t, complete)
	assert.Contains(t, missing, "species")
}

func TestNormalizeExperimenter(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "Smith, Jane", r.NormalizeField("experimenter", "Dr. Jane Smith"))
	// idempotent
	assert.Equal(t, "Smith, Jane", r.NormalizeField("experimenter", "Smith, Jane"))
}

func TestNormalizeInstitution(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "Massachusetts Institute of Technology", r.NormalizeField("institution", "MIT"))
	assert.Equal(t, "Massachusetts Institute of Technology", r.NormalizeField("institution", "Massachusetts Institute of Technology"))
}

func TestNormalizeSex(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "M", r.NormalizeField("sex", "male"))
	assert.Equal(t, "M", r.NormalizeField("sex", "M"))
}

func TestNormalizeSpecies(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "Mus musculus", r.NormalizeField("species", "C57BL/6 mouse"))
	assert.Equal(t, "Mus musculus", r.NormalizeField("species", "Mus musculus"))
}

func TestNormalizeAge(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "P60D", r.NormalizeField("age", "P60"))
	assert.Equal(t, "P60D", r.NormalizeField("age", "P60D"))
	assert.Equal(t, "P8W", r.NormalizeField("age", "8 weeks"))
}

func TestClassifyConfidence(t *testing.T) {
	assert.Equal(t, BandSilent, ClassifyConfidence(95))
	assert.Equal(t, BandSilent, ClassifyConfidence(80))
	assert.Equal(t, BandWarn, ClassifyConfidence(79))
	assert.Equal(t, BandWarn, ClassifyConfidence(50))
	assert.Equal(t, BandFlag, ClassifyConfidence(49))
}

func TestFallbackExtract_Scenario1Text(t *testing.T) {
	r := NewRegistry()
	result := r.FallbackExtract("Dr. Jane Smith from MIT, male P60 C57BL/6 mouse, subject mouse001, visual cortex recording")

	assert.Equal(t, "Smith, Jane", result.Fields["experimenter"].Value)
	assert.Equal(t, "Massachusetts Institute of Technology", result.Fields["institution"].Value)
	assert.Equal(t, "M", result.Fields["sex"].Value)
	assert.Equal(t, "P60D", result.Fields["age"].Value)
	assert.Equal(t, "Mus musculus", result.Fields["species"].Value)
	assert.Equal(t, "mouse001", result.Fields["subject_id"].Value)
}
