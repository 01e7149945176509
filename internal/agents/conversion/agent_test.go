package conversion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/llm"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/logging"
)

func testLogger() *logging.Logger {
	l, err := logging.New("development")
	if err != nil {
		panic(err)
	}
	return l
}

func TestDetectFormat_SpikeGLXByPattern(t *testing.T) {
	a := New(&MockConverter{}, nil, testLogger())
	res, err := a.DetectFormat(context.Background(), "Noise4Sam_g0_t0.imec0.ap.bin", []string{"Noise4Sam_g0_t0.imec0.ap.meta"})
	require.NoError(t, err)
	assert.Equal(t, "SpikeGLX", res.Format)
	assert.Equal(t, "high", res.Band)
}

func TestDetectFormat_OpenEphysByPattern(t *testing.T) {
	a := New(&MockConverter{}, nil, testLogger())
	res, err := a.DetectFormat(context.Background(), "recording1/continuous.dat", []string{"structure.oebin"})
	require.NoError(t, err)
	assert.Equal(t, "OpenEphys", res.Format)
}

func TestDetectFormat_AmbiguousWithoutCompanion(t *testing.T) {
	a := New(&MockConverter{}, nil, testLogger())
	res, err := a.DetectFormat(context.Background(), "recording.bin", nil)
	require.NoError(t, err)
	assert.Equal(t, "ambiguous", res.Band)
	assert.Empty(t, res.Format)
	assert.NotEmpty(t, res.Candidates)
}

func TestDetectFormat_LLMAcceptedAboveThreshold(t *testing.T) {
	mock := llm.NewMockGateway()
	mock.Script(detectSystemPrompt, "file: probe.bin\nsiblings: ",
		`{"format":"Neuropixels","confidence":88,"evidence":"matches known pattern"}`)
	a := New(&MockConverter{}, mock, testLogger())

	res, err := a.DetectFormat(context.Background(), "session/probe.bin", nil)
	require.NoError(t, err)
	assert.Equal(t, "Neuropixels", res.Format)
	assert.Equal(t, 88, res.Confidence)
}

func TestDetectFormat_LLMBelowThresholdFallsBackToPattern(t *testing.T) {
	mock := llm.NewMockGateway()
	mock.Script(detectSystemPrompt, "file: Noise4Sam_g0_t0.imec0.ap.bin\nsiblings: Noise4Sam_g0_t0.imec0.ap.meta",
		`{"format":"SpikeGLX","confidence":40,"evidence":"weak guess"}`)
	a := New(&MockConverter{}, mock, testLogger())

	res, err := a.DetectFormat(context.Background(), "Noise4Sam_g0_t0.imec0.ap.bin", []string{"Noise4Sam_g0_t0.imec0.ap.meta"})
	require.NoError(t, err)
	assert.Equal(t, "SpikeGLX", res.Format)
	assert.Equal(t, 95, res.Confidence) // came from the pattern matcher, not the scripted 40
}

func TestRunConversion_ReturnsOutputAndChecksum(t *testing.T) {
	a := New(&MockConverter{}, nil, testLogger())
	var seen []int
	result, err := a.RunConversion(context.Background(), "/data/mouse001.ap.bin", "SpikeGLX",
		map[string]string{"subject_id": "mouse001"},
		func(pct int, label string) { seen = append(seen, pct) })

	require.NoError(t, err)
	assert.NotEmpty(t, result.OutputPath)
	assert.NotEmpty(t, result.Checksum)
	assert.Equal(t, []int{0, 10, 20, 30, 50, 90, 98, 100}, seen)
}

func TestRunConversion_WrapsFailureAsAgentRecoverable(t *testing.T) {
	a := New(&MockConverter{Fail: errors.New("boom")}, nil, testLogger())
	_, err := a.RunConversion(context.Background(), "/data/x.bin", "SpikeGLX", nil, nil)
	require.Error(t, err)
}

func TestApplyCorrections_ComputesVersionedNameEvenWithNoPriorOutputOnDisk(t *testing.T) {
	a := New(&MockConverter{}, nil, testLogger())
	versionedPath, result, err := a.ApplyCorrections(context.Background(), "/data/mouse001.ap.bin", "SpikeGLX",
		map[string]string{"species": "Mus musculus"}, "/data/mouse001.nwb", "deadbeefcafe", 1, nil)

	require.NoError(t, err)
	assert.Equal(t, "/data/mouse001_v1_deadbeef.nwb", versionedPath)
	assert.NotEmpty(t, result.Checksum)
}

func TestApplyCorrections_RenamesPreviousOutputOnDisk(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "mouse001.ap.bin")
	previousOutputPath := filepath.Join(dir, "mouse001.ap.nwb")
	require.NoError(t, os.WriteFile(previousOutputPath, []byte("first attempt output"), 0o644))

	a := New(&MockConverter{OutputDir: dir}, nil, testLogger())
	versionedPath, result, err := a.ApplyCorrections(context.Background(), inputPath, "SpikeGLX",
		map[string]string{"species": "Mus musculus"}, previousOutputPath, "deadbeefcafe", 1, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "mouse001.ap_v1_deadbeef.nwb"), versionedPath)
	assert.FileExists(t, versionedPath)
	assert.NoFileExists(t, previousOutputPath)
	assert.Equal(t, previousOutputPath, result.OutputPath, "the fresh conversion writes back to the original deterministic path")
}

func TestChecksumOf_DifferentMetadataProducesDifferentChecksum(t *testing.T) {
	a := MockConverter{}
	r1, _ := a.Convert(context.Background(), ConvertRequest{InputPath: "x.bin", Format: "SpikeGLX", Metadata: map[string]string{"subject_id": "a"}}, nil)
	r2, _ := a.Convert(context.Background(), ConvertRequest{InputPath: "x.bin", Format: "SpikeGLX", Metadata: map[string]string{"subject_id": "b"}}, nil)
	assert.NotEqual(t, r1.Checksum, r2.Checksum)
}
