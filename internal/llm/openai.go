package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIGateway implements Gateway using OpenAI's Chat Completions API.
// Tool definitions and tool-call parsing are left out for the same reason
// as the Anthropic provider; structured completion uses OpenAI's native
// response_format JSON mode instead of tool-forcing.
type OpenAIGateway struct {
	client openai.Client
	model  string
}

func NewOpenAIGateway(apiKey, model string) *OpenAIGateway {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIGateway{client: client, model: model}
}

func (g *OpenAIGateway) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	if temperature > 0 {
		params.Temperature = openai.Float(temperature)
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrLLMUnavailable)
	}
	return completion.Choices[0].Message.Content, nil
}

func (g *OpenAIGateway) CompleteStructured(ctx context.Context, system, user string, schema Schema, temperature float64) (map[string]any, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	}
	if temperature > 0 {
		params.Temperature = openai.Float(temperature)
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrLLMUnavailable)
	}
	return parseStructured(completion.Choices[0].Message.Content, schema)
}
