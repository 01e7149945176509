// Package conversation implements the Conversation Agent: the workflow
// orchestrator. It owns all dialogue, state transitions, the retry loop,
// and every invocation of the Conversion and Evaluation agents, which it
// reaches exclusively through the Message Bus (§4.7).
//
// One struct holds the orchestrator's collaborators, with one method per
// public action, generalized from signal/query handlers mutating a
// workflow-local struct to bus.Send calls mutating a WorkflowState guarded
// by its own lock.
package conversation

import (
	"golang.org/x/sync/semaphore"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/agents/evaluation"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/apperrors"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/bus"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/llm"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/logging"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/metadata"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/state"
)

// Agent is the Conversation Agent.
//
// The fields below (lastAskedFields, pendingCorrectionAnalysis, lastReport,
// improvementRepromptCount) are orchestration scratch state: short-lived
// bookkeeping for the conversation in flight that the Workflow State does
// not itself track. inflight turns the "one in-flight request at a time"
// concurrency model (§5) from an assumption into an enforced invariant, so
// they stay safe unguarded by any lock of their own.
type Agent struct {
	state    *state.WorkflowState
	bus      *bus.Bus
	gateway  llm.Gateway
	registry *metadata.Registry
	logger   *logging.Logger
	inflight *semaphore.Weighted

	lastReport                *evaluation.Report
	improvementRepromptCount  int
	lastAskedFields           []string
	pendingCorrectionAnalysis *evaluation.CorrectionAnalysis
}

// New constructs the orchestrator. s.Registry() is reused as the single
// Metadata Schema Registry instance shared with the Workflow State's own
// completeness checks.
func New(s *state.WorkflowState, b *bus.Bus, gateway llm.Gateway, logger *logging.Logger) *Agent {
	if logger != nil {
		logger = logger.With("agent", "conversation")
	}
	return &Agent{state: s, bus: b, gateway: gateway, registry: s.Registry(), logger: logger, inflight: semaphore.NewWeighted(1)}
}

// enter acquires the single in-flight slot for the duration of one public
// action (StartConversion, Chat, DecideImprovement, DecideRetry). It
// returns apperrors.ErrBusy immediately rather than queuing, matching the
// External Interface Layer's synchronous request/reply contract (§6).
func (a *Agent) enter() (func(), error) {
	if !a.inflight.TryAcquire(1) {
		return nil, apperrors.ErrBusy
	}
	return func() { a.inflight.Release(1) }, nil
}

func (a *Agent) log(level, message string, ctx map[string]any) {
	a.state.Log(level, message, ctx)
	if a.logger == nil {
		return
	}
	kv := make([]any, 0, len(ctx)*2)
	for k, v := range ctx {
		kv = append(kv, k, v)
	}
	switch level {
	case "WARNING":
		a.logger.Warn(message, kv...)
	case "ERROR":
		a.logger.Error(message, kv...)
	default:
		a.logger.Info(message, kv...)
	}
}
