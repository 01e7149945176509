// Package apperrors implements the error taxonomy of the orchestration
// engine: every error raised by an agent or the state machine is classified
// into one of four kinds so the Conversation Agent and the external
// interface can decide how to surface it without re-deriving the policy at
// each call site.
package apperrors

import "fmt"

// Kind classifies an error for propagation and surfacing policy.
type Kind int

const (
	// UserRecoverable: invalid upload, unsupported format, missing required
	// metadata. Surfaced as a phase change to AWAITING_USER_INPUT with an
	// actionable message. Never terminal.
	UserRecoverable Kind = iota
	// AgentRecoverable: LLM failure, inspector transient failure, partial
	// conversion failure. Handled by fallbacks. Logged at WARNING.
	AgentRecoverable
	// WorkflowTerminal: retry limit reached, user cancellation, repeated
	// no-progress. Sets a terminal disposition and FAILED status.
	WorkflowTerminal
	// Invariant: precondition violations. Not user-facing; surfaces as
	// INTERNAL at the interface; logged at ERROR.
	Invariant
)

func (k Kind) String() string {
	switch k {
	case UserRecoverable:
		return "UserRecoverable"
	case AgentRecoverable:
		return "AgentRecoverable"
	case WorkflowTerminal:
		return "WorkflowTerminal"
	case Invariant:
		return "Invariant"
	default:
		return "Unknown"
	}
}

// OrchestratorError is the single error type raised across agent and state
// boundaries. Conversion and Evaluation agents wrap their operations'
// failures in one of these via the constructors below; their bus handlers
// report a payload of the wrong type as a plain error.
type OrchestratorError struct {
	Kind    Kind
	Message string
	Cause   error
	// Context carries structured fields (correlation id, action, input
	// summary) that the state log and the zap logger both attach.
	Context map[string]any
}

func (e *OrchestratorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *OrchestratorError) Unwrap() error { return e.Cause }

// WithContext returns a copy of the error with a context field attached.
func (e *OrchestratorError) WithContext(key string, value any) *OrchestratorError {
	ctx := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &OrchestratorError{Kind: e.Kind, Message: e.Message, Cause: e.Cause, Context: ctx}
}

func NewUserRecoverable(message string, cause error) *OrchestratorError {
	return &OrchestratorError{Kind: UserRecoverable, Message: message, Cause: cause}
}

func NewAgentRecoverable(message string, cause error) *OrchestratorError {
	return &OrchestratorError{Kind: AgentRecoverable, Message: message, Cause: cause}
}

func NewWorkflowTerminal(message string, cause error) *OrchestratorError {
	return &OrchestratorError{Kind: WorkflowTerminal, Message: message, Cause: cause}
}

func NewInvariant(message string, cause error) *OrchestratorError {
	return &OrchestratorError{Kind: Invariant, Message: message, Cause: cause}
}

// As reports whether err is an *OrchestratorError of the given kind.
func As(err error, kind Kind) bool {
	oe, ok := err.(*OrchestratorError)
	return ok && oe.Kind == kind
}

// RetryLimitExceeded is returned by increment_correction_attempt once
// correction_attempt has reached MAX_RETRIES.
var ErrRetryLimitExceeded = NewWorkflowTerminal("retry limit exceeded", nil)

// ErrAlreadyTerminal is returned by set_terminal when the status is already
// COMPLETED or FAILED (invariant violation, not user-facing).
var ErrAlreadyTerminal = NewInvariant("workflow already in a terminal state", nil)

// ErrBusy is the external-interface BUSY exit condition.
var ErrBusy = NewUserRecoverable("a conversion is already in progress", nil)

// ErrInvalidState signals a precondition on the current status/phase was
// not met.
var ErrInvalidState = NewUserRecoverable("operation not valid in the current state", nil)

// ErrNotFound signals a download requested before output exists.
var ErrNotFound = NewUserRecoverable("no output available", nil)
