package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerGateway wraps a Gateway with a circuit breaker. A flapping LLM
// backend trips the breaker so repeated failures degrade to the caller's
// deterministic fallback immediately instead of re-attempting and blocking
// the single-threaded orchestrator loop on timeouts.
type BreakerGateway struct {
	inner   Gateway
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerGateway wraps inner with a breaker that opens after 5
// consecutive failures and stays open for 30 seconds before probing again.
func NewBreakerGateway(inner Gateway, name string) *BreakerGateway {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &BreakerGateway{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerGateway) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.inner.Complete(ctx, system, user, temperature)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
		}
		return "", err
	}
	return result.(string), nil
}

func (b *BreakerGateway) CompleteStructured(ctx context.Context, system, user string, schema Schema, temperature float64) (map[string]any, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.inner.CompleteStructured(ctx, system, user, schema, temperature)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
		}
		return nil, err
	}
	return result.(map[string]any), nil
}
