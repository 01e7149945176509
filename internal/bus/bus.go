// Package bus implements the in-process message-passing protocol that
// keeps agent coupling explicit and testable: the Conversation Agent never
// calls the Conversion or Evaluation agent directly, it routes through a
// registry of (agent, action) -> handler, so neither side depends on the
// other's concrete type.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message carries a request to a named agent action.
type Message struct {
	ID       uuid.UUID
	Agent    string
	Action   string
	Payload  any
	Deadline time.Time
	// CorrelationID ties this message to the external-interface call that
	// originated it, so logs and push events can be traced end to end.
	CorrelationID uuid.UUID
}

// Response carries the result of dispatching a Message.
type Response struct {
	ReplyTo      uuid.UUID
	Success      bool
	Result       any
	ErrorCode    string
	ErrorMessage string
}

const (
	ErrCodeAgentNotFound    = "AGENT_NOT_FOUND"
	ErrCodeHandlerException = "HANDLER_EXCEPTION"
)

// Handler processes one Message and produces a Response. Handlers are
// invoked synchronously in the caller's goroutine; the bus performs no
// scheduling of its own.
type Handler func(ctx context.Context, msg Message) (any, error)

type correlationKey struct{}

// WithCorrelationID attaches id to ctx so every bus.Send call made while
// handling one external-interface request carries the same correlation id.
func WithCorrelationID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFrom reads the id attached by WithCorrelationID, if any.
func CorrelationIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(correlationKey{}).(uuid.UUID)
	return id, ok
}

type key struct {
	agent  string
	action string
}

// Bus is a registry mapping (agent, action) to exactly one handler.
type Bus struct {
	mu       sync.RWMutex
	handlers map[key]Handler
}

func New() *Bus {
	return &Bus{handlers: make(map[key]Handler)}
}

// Register binds a handler to (agent, action). Re-registering the same
// pair is an error, since exactly one handler may own an action.
func (b *Bus) Register(agent, action string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key{agent, action}
	if _, exists := b.handlers[k]; exists {
		return fmt.Errorf("bus: handler already registered for %s.%s", agent, action)
	}
	b.handlers[k] = h
	return nil
}

// Send dispatches a message synchronously and never panics: handler
// exceptions are recovered and converted into HANDLER_EXCEPTION responses.
func (b *Bus) Send(ctx context.Context, agent, action string, payload any) Response {
	msg := Message{
		ID:      uuid.New(),
		Agent:   agent,
		Action:  action,
		Payload: payload,
	}
	if dl, ok := ctx.Deadline(); ok {
		msg.Deadline = dl
	}
	if id, ok := CorrelationIDFrom(ctx); ok {
		msg.CorrelationID = id
	} else {
		msg.CorrelationID = uuid.New()
	}

	b.mu.RLock()
	h, ok := b.handlers[key{agent, action}]
	b.mu.RUnlock()

	if !ok {
		return Response{
			ReplyTo:      msg.ID,
			Success:      false,
			ErrorCode:    ErrCodeAgentNotFound,
			ErrorMessage: fmt.Sprintf("no handler registered for %s.%s", agent, action),
		}
	}

	return b.invoke(ctx, msg, h)
}

func (b *Bus) invoke(ctx context.Context, msg Message, h Handler) (resp Response) {
	resp.ReplyTo = msg.ID

	defer func() {
		if r := recover(); r != nil {
			resp.Success = false
			resp.ErrorCode = ErrCodeHandlerException
			resp.ErrorMessage = fmt.Sprintf("handler panicked: %v", r)
		}
	}()

	result, err := h(ctx, msg)
	if err != nil {
		resp.Success = false
		resp.ErrorCode = ErrCodeHandlerException
		resp.ErrorMessage = err.Error()
		return resp
	}

	resp.Success = true
	resp.Result = result
	return resp
}

// HandlerCount reports how many (agent, action) pairs are registered.
// Used by readiness checks and tests.
func (b *Bus) HandlerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
