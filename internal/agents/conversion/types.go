// Package conversion implements the Conversion Agent: format detection and
// NWB production. It never talks to the user directly — failures are
// returned as *apperrors.OrchestratorError for the Conversation Agent to
// translate into a user-facing message.
//
// A small struct wraps one external collaborator (a NeuroConv-equivalent
// Converter), with typed request/response structs per operation instead
// of a single catch-all call.
package conversion

import "context"

// ConvertRequest is the input to a conversion or re-conversion pass.
type ConvertRequest struct {
	InputPath string
	Format    string
	Metadata  map[string]string
}

// ConvertResult is the black-box Converter's output: the produced file and
// its content checksum.
type ConvertResult struct {
	OutputPath string
	Checksum   string
}

// ProgressFunc is invoked by Converter implementations at fixed progress
// milestones: 0, 10, 20, 30, 50, 90, 98, 100.
type ProgressFunc func(percent int, label string)

// Converter is the black-box NeuroConv-equivalent collaborator: maps a raw
// acquisition-format input plus metadata to an NWB file. Deliberately
// out of scope per the purpose statement; only its interface is specified
// here.
type Converter interface {
	Convert(ctx context.Context, req ConvertRequest, progress ProgressFunc) (ConvertResult, error)
}

// DetectionResult is the outcome of detect_format.
type DetectionResult struct {
	Format     string
	Confidence int // 0-100
	Band       string // high | medium | ambiguous
	Candidates []Candidate
	Evidence   string
}

// Candidate is one ranked alternative offered to the user when detection is
// ambiguous.
type Candidate struct {
	Format     string `json:"format"`
	Confidence int    `json:"confidence"`
	Evidence   string `json:"evidence"`
}

func bandFor(confidence int) string {
	switch {
	case confidence >= 90:
		return "high"
	case confidence >= 70:
		return "medium"
	default:
		return "ambiguous"
	}
}
