package llm

import (
	"context"
	"fmt"
)

// MultiProviderClient dispatches to the configured backend by provider
// name, generalized from "openai or anthropic" to also allow "mock" so the
// same construction path works for tests, offline use, and production.
type MultiProviderClient struct {
	provider string
	anthropic Gateway
	openai    Gateway
	mock      Gateway
}

// NewMultiProviderClient builds a client for the given provider name.
// anthropicKey/openaiKey may be empty if that provider will not be used.
func NewMultiProviderClient(provider, anthropicModel, anthropicKey, openaiModel, openaiKey string, mock Gateway) (*MultiProviderClient, error) {
	c := &MultiProviderClient{provider: provider, mock: mock}

	switch provider {
	case "anthropic":
		if anthropicKey == "" {
			return nil, fmt.Errorf("llm: ANTHROPIC_API_KEY required for provider %q", provider)
		}
		c.anthropic = NewAnthropicGateway(anthropicKey, anthropicModel)
	case "openai":
		if openaiKey == "" {
			return nil, fmt.Errorf("llm: OPENAI_API_KEY required for provider %q", provider)
		}
		c.openai = NewOpenAIGateway(openaiKey, openaiModel)
	case "mock", "":
		if mock == nil {
			mock = NewMockGateway()
		}
		c.mock = mock
		c.provider = "mock"
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q (supported: anthropic, openai, mock)", provider)
	}

	return c, nil
}

func (c *MultiProviderClient) active() Gateway {
	switch c.provider {
	case "anthropic":
		return c.anthropic
	case "openai":
		return c.openai
	default:
		return c.mock
	}
}

func (c *MultiProviderClient) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	return c.active().Complete(ctx, system, user, temperature)
}

func (c *MultiProviderClient) CompleteStructured(ctx context.Context, system, user string, schema Schema, temperature float64) (map[string]any, error) {
	return c.active().CompleteStructured(ctx, system, user, schema, temperature)
}
