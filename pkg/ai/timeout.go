package ai

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"

	"github.com/felixgeelhaar/buraco/pkg/domain/ai"
)

// DefaultTimeout bounds a single model call when no timeout is configured.
const DefaultTimeout = 60 * time.Second

// TimeoutProvider bounds every call to the inner provider. It never retries:
// callers decide whether a failed analysis is worth another attempt.
type TimeoutProvider struct {
	inner ai.Provider
	limit time.Duration
}

func NewTimeoutProvider(inner ai.Provider, limit time.Duration) *TimeoutProvider {
	if limit <= 0 {
		limit = DefaultTimeout
	}
	return &TimeoutProvider{inner: inner, limit: limit}
}

// WithTimeout wraps every provider a factory builds.
func WithTimeout(factory ai.ProviderFactory, limit time.Duration) ai.ProviderFactory {
	return func(apiKey string) ai.Provider {
		return NewTimeoutProvider(factory(apiKey), limit)
	}
}

func (p *TimeoutProvider) ID() string {
	return p.inner.ID()
}

// Limit returns the configured bound.
func (p *TimeoutProvider) Limit() time.Duration {
	return p.limit
}

func (p *TimeoutProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	t := timeout.New[*ai.CompletionResponse](timeout.Config{
		DefaultTimeout: p.limit,
	})
	return t.Execute(ctx, p.limit, func(ctx context.Context) (*ai.CompletionResponse, error) {
		return p.inner.Complete(ctx, req)
	})
}
