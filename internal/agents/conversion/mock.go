package conversion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// MockConverter is a deterministic stand-in for the NeuroConv-equivalent
// library: it never touches a real NWB writer, computing a checksum from
// the request's inputs instead so tests can assert against it without
// network or filesystem dependencies.
type MockConverter struct {
	// OutputDir overrides where the computed output path is rooted; defaults
	// to the input file's directory.
	OutputDir string
	// Fail, if set, is returned verbatim instead of performing the mock
	// conversion, to exercise AgentRecoverable propagation.
	Fail error
}

var progressMilestones = []int{0, 10, 20, 30, 50, 90, 98, 100}

func (m *MockConverter) Convert(ctx context.Context, req ConvertRequest, progress ProgressFunc) (ConvertResult, error) {
	if m.Fail != nil {
		return ConvertResult{}, m.Fail
	}

	labels := map[int]string{
		0:   "starting",
		10:  "reading source",
		20:  "mapping channels",
		30:  "building NWB skeleton",
		50:  "writing acquisition data",
		90:  "attaching metadata",
		98:  "finalizing",
		100: "done",
	}
	for _, pct := range progressMilestones {
		if progress != nil {
			progress(pct, labels[pct])
		}
	}

	dir := m.OutputDir
	if dir == "" {
		dir = filepath.Dir(req.InputPath)
	}
	stem := strings.TrimSuffix(filepath.Base(req.InputPath), filepath.Ext(req.InputPath))
	outputPath := filepath.Join(dir, stem+".nwb")

	checksum := checksumOf(req)
	return ConvertResult{OutputPath: outputPath, Checksum: checksum}, nil
}

// checksumOf hashes the sorted metadata plus input/format so that identical
// inputs always produce the same checksum and different metadata always
// produces a different one (used by the no-progress fingerprint and the
// uniqueness testable property).
func checksumOf(req ConvertRequest) string {
	keys := make([]string, 0, len(req.Metadata))
	for k := range req.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s", req.InputPath, req.Format)
	for _, k := range keys {
		fmt.Fprintf(h, "|%s=%s", k, req.Metadata[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}
