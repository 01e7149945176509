// Package llm is the Language Model Gateway: two narrow capabilities,
// free-form completion and schema-constrained structured completion, with
// a deterministic mock for tests and offline use, real Anthropic/OpenAI
// backends, and a circuit breaker so a flapping provider degrades to the
// caller's fallback immediately instead of blocking the single-threaded
// orchestrator loop.
//
// Tool-calling machinery (tool specs, conversation-item history, tool-call
// finish reasons) is left out since this domain never does tool use, and a
// structured-completion capability is added in its place since the
// Conversation Agent needs JSON-schema-constrained extraction, not
// free-running chat.
package llm

import (
	"context"
	"fmt"
)

// Schema describes the JSON object a structured completion must produce.
// Shaped as Name/Schema/Strict rather than adopting a full JSON Schema
// library, since the only consumer is a required-field presence check —
// see DESIGN.md.
type Schema struct {
	Name   string
	Schema map[string]any
	Strict bool
}

// Gateway is the Language Model Gateway interface (§4.3). Every consumer
// must treat both calls as fallible and never let a failure escape a bus
// handler uncaught — callers substitute a deterministic fallback and log.
type Gateway interface {
	// Complete performs free-form completion. Fails with an error wrapping
	// ErrLLMUnavailable on transport failure.
	Complete(ctx context.Context, system, user string, temperature float64) (string, error)

	// CompleteStructured performs completion constrained to schema. Fails
	// with an error wrapping ErrLLMInvalidOutput if the
	// model's output does not parse as JSON or fails schema validation.
	// Surrounding code fences (``` or ```json) are stripped before parsing.
	CompleteStructured(ctx context.Context, system, user string, schema Schema, temperature float64) (map[string]any, error)
}

// Sentinel causes wrapped (via fmt.Errorf's %w) by every Gateway
// implementation's errors, so callers can tell with errors.Is when to fall
// back to their deterministic path.
var (
	ErrLLMUnavailable   = fmt.Errorf("llm: backend unavailable")
	ErrLLMInvalidOutput = fmt.Errorf("llm: output did not validate against schema")
)
