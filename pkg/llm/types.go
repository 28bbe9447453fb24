// Package llm runs structured, schema-validated LLM calls: cache lookup,
// concurrency limiting, timeout enforcement, and adaptive retry with
// output compression when a model keeps failing schema validation.
package llm

import "context"

// ModelClient is the minimal surface pkg/llm needs from a model provider,
// shaped after anthropic-sdk-go's single-turn message call: a model name,
// a prompt, and a response schema description, returning text plus usage.
// The production implementation wraps anthropic-sdk-go's Messages.New;
// tests use llmtest.Fake.
type ModelClient interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// GenerateRequest is one model call.
type GenerateRequest struct {
	Model          string
	SystemPrompt   string
	UserPrompt     string
	SchemaName     string // for logging/cache classification only
	MaxTokens      int
	TimeoutMS      int
}

// GenerateResponse is the raw model output before schema parsing.
type GenerateResponse struct {
	Text         string
	Usage        Usage
	FinishReason string
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// CompressionLevel is the adaptive retry state: each failed schema
// validation attempt tightens the prompt's requested output shape before
// retrying, trading completeness for a better chance of validating.
type CompressionLevel int

const (
	CompressionNormal CompressionLevel = iota
	CompressionCompact
	CompressionMinimal
)

func (c CompressionLevel) String() string {
	switch c {
	case CompressionCompact:
		return "compact"
	case CompressionMinimal:
		return "minimal"
	default:
		return "normal"
	}
}
