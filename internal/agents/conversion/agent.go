package conversion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/apperrors"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/llm"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/logging"
)

// Agent is the Conversion Agent. It wraps the black-box Converter
// (NeuroConv-equivalent) and, optionally, the LM Gateway used for
// first-pass format detection.
type Agent struct {
	converter Converter
	gateway   llm.Gateway
	logger    *logging.Logger
}

// New constructs a Conversion Agent. gateway may be nil, in which case
// DetectFormat goes straight to pattern matching.
func New(converter Converter, gateway llm.Gateway, logger *logging.Logger) *Agent {
	if logger != nil {
		logger = logger.With("agent", "conversion")
	}
	return &Agent{converter: converter, gateway: gateway, logger: logger}
}

func (a *Agent) log(level, msg string, ctx map[string]any) {
	if a.logger == nil {
		return
	}
	switch level {
	case "WARNING":
		a.logger.Warn(msg, flatten(ctx)...)
	case "ERROR":
		a.logger.Error(msg, flatten(ctx)...)
	default:
		a.logger.Info(msg, flatten(ctx)...)
	}
}

func flatten(ctx map[string]any) []any {
	out := make([]any, 0, len(ctx)*2)
	for k, v := range ctx {
		out = append(out, k, v)
	}
	return out
}

// RunConversion produces an NWB file at a deterministic output path,
// reporting progress through progress at the milestones 0, 10, 20, 30, 50,
// 90, 98, 100.
func (a *Agent) RunConversion(ctx context.Context, inputPath, format string, metadata map[string]string, progress ProgressFunc) (ConvertResult, error) {
	result, err := a.converter.Convert(ctx, ConvertRequest{InputPath: inputPath, Format: format, Metadata: metadata}, progress)
	if err != nil {
		return ConvertResult{}, apperrors.NewAgentRecoverable("conversion failed", err).
			WithContext("input_path", inputPath).WithContext("format", format)
	}
	return result, nil
}

// ApplyCorrections versions the previous output by renaming it to
// {stem}_v{N}_{checksum-prefix}{ext} before re-running conversion, so the
// converter's next write to its deterministic output path never clobbers
// what it wrote last attempt. All prior versions are preserved immutably
// on disk, addressable by their versioned filename. A missing previous
// output (nothing written yet, or a mock converter that never touches the
// filesystem) is not an error: there is simply nothing to preserve.
func (a *Agent) ApplyCorrections(ctx context.Context, inputPath, format string, corrections map[string]string, previousOutputPath string, previousChecksum string, version int, progress ProgressFunc) (versionedPath string, result ConvertResult, err error) {
	versionedPath = versionOutputPath(previousOutputPath, previousChecksum, version)

	if previousOutputPath != "" {
		if err := os.Rename(previousOutputPath, versionedPath); err != nil {
			if !os.IsNotExist(err) {
				return versionedPath, ConvertResult{}, apperrors.NewAgentRecoverable("versioning previous output failed", err).
					WithContext("previous_output_path", previousOutputPath).WithContext("versioned_path", versionedPath)
			}
			a.log("WARNING", "previous output missing, nothing to version", map[string]any{"previous_output_path": previousOutputPath})
		}
	}

	result, err = a.converter.Convert(ctx, ConvertRequest{InputPath: inputPath, Format: format, Metadata: corrections}, progress)
	if err != nil {
		return versionedPath, ConvertResult{}, apperrors.NewAgentRecoverable("correction re-conversion failed", err).
			WithContext("input_path", inputPath).WithContext("version", version)
	}
	return versionedPath, result, nil
}

// versionOutputPath computes {stem}_v{N}_{checksum8}{ext} for the file
// being superseded, per the persisted-state-layout rule in §6.
func versionOutputPath(path, checksum string, version int) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	prefix := checksum
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("%s_v%d_%s%s", stem, version, prefix, ext)
}
