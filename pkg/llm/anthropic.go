package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient is the production ModelClient, backed by the real
// Anthropic API. It is selected per tenant: hosted mode uses the
// process's own API key, byo_key mode uses the tenant's decrypted key.
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient builds a client scoped to a single API key. Callers
// construct one per (tenant, execution mode) pair rather than sharing a
// single client across tenants, since the key itself is the scoping
// boundary.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Generate issues a single-turn message call and flattens the response
// into GenerateResponse. Structured output is requested via the prompt
// itself (the caller embeds the schema description and an instruction to
// respond with JSON only); this layer does not use tool-call based
// structured output so the same code path works across compression
// levels that reshape the prompt, not the API surface.
func (c *AnthropicClient) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	})
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("llm: anthropic generate: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if tb := block.AsAny(); tb != nil {
			if t, ok := tb.(anthropic.TextBlock); ok {
				text += t.Text
			}
		}
	}

	return GenerateResponse{
		Text: text,
		Usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
		FinishReason: string(msg.StopReason),
	}, nil
}
