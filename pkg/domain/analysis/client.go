package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/buraco/pkg/domain/ai"
)

// FailurePrefix starts the text of every error result.
const FailurePrefix = "Analysis failed: "

// Client sends a photo and the fixed prompt to a vision model. It makes a
// single attempt per call; retrying is the caller's decision.
type Client struct {
	factory ai.ProviderFactory
}

func NewClient(factory ai.ProviderFactory) *Client {
	return &Client{factory: factory}
}

// Analyze never returns an error. Transport, auth and quota failures as well
// as empty answers become a Result with StatusError.
func (c *Client) Analyze(ctx context.Context, img ai.Image, apiKey string) Result {
	if c.factory == nil {
		return failed("no AI provider configured")
	}
	if apiKey == "" {
		return failed("API key not provided")
	}

	provider := c.factory(apiKey)
	resp, err := provider.Complete(ctx, ai.CompletionRequest{
		Prompt: Prompt,
		Images: []ai.Image{img},
	})
	if err != nil {
		return failed(err.Error())
	}
	if resp == nil {
		return failed("empty response from model")
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return failed("empty response from model")
	}
	return Result{Status: StatusSuccess, Text: text}
}

func failed(detail string) Result {
	return Result{Status: StatusError, Text: fmt.Sprintf("%s%s", FailurePrefix, detail)}
}
