package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicGateway implements Gateway using Anthropic's Messages API.
// Tool-use content blocks, prompt-caching system blocks, and multi-turn
// history conversion are left out since the Gateway's two capabilities are
// single-shot completions with no conversation state of their own (the
// orchestrator supplies system/user text already composed from its own
// bounded history); structured completion is added as a plain instruction
// appended to the system prompt rather than tool-forced JSON, since
// Anthropic's tool-use "forced JSON" trick pulls in machinery this domain
// has no other use for.
type AnthropicGateway struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewAnthropicGateway(apiKey, model string) *AnthropicGateway {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicGateway{client: client, model: selectAnthropicModel(model)}
}

func selectAnthropicModel(name string) anthropic.Model {
	switch name {
	case "claude-opus-4.6", "claude-opus-4-6":
		return anthropic.ModelClaudeOpus4_6
	case "claude-haiku-4.5", "claude-haiku-4.5-20251001":
		return anthropic.ModelClaudeHaiku4_5_20251001
	case "", "claude-sonnet-4.5", "claude-sonnet-4.5-20250929":
		return anthropic.ModelClaudeSonnet4_5_20250929
	default:
		return anthropic.ModelClaudeSonnet4_5_20250929
	}
}

func (g *AnthropicGateway) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					{OfText: &anthropic.TextBlockParam{Text: user}},
				},
			},
		},
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(temperature)
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMUnavailable, classifyAnthropicError(err))
	}

	return extractText(resp), nil
}

func (g *AnthropicGateway) CompleteStructured(ctx context.Context, system, user string, schema Schema, temperature float64) (map[string]any, error) {
	structuredSystem := system + "\n\nRespond with a single JSON object matching this shape, and nothing else: " + describeSchema(schema)

	raw, err := g.Complete(ctx, structuredSystem, user, temperature)
	if err != nil {
		return nil, err
	}
	return parseStructured(raw, schema)
}

func extractText(msg *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String()
}

func describeSchema(schema Schema) string {
	var fields []string
	if props, ok := schema.Schema["properties"].(map[string]any); ok {
		for name := range props {
			fields = append(fields, name)
		}
	}
	return fmt.Sprintf("%s{%s}", schema.Name, strings.Join(fields, ", "))
}

func classifyAnthropicError(err error) error {
	if apiErr, ok := err.(*anthropic.Error); ok {
		return fmt.Errorf("anthropic api error (status %d): %v", apiErr.StatusCode, err)
	}
	return err
}
