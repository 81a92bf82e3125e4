package ai

import (
	"context"
)

// Image is an inline image payload sent alongside a prompt.
type Image struct {
	MimeType string
	Data     []byte
}

// CompletionRequest represents a prompt to the model.
type CompletionRequest struct {
	Prompt      string
	System      string
	Images      []Image
	Temperature float32
	MaxTokens   int
}

// CompletionResponse represents the model's answer.
type CompletionResponse struct {
	Text  string
	Usage TokenUsage
	Model string
}

// TokenUsage tracks costs.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Provider is the interface for all generative backends.
type Provider interface {
	ID() string
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ProviderFactory builds a provider bound to one API key. Keys are passed per
// call so a missing key can be rejected before any provider exists.
type ProviderFactory func(apiKey string) Provider
