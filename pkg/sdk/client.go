package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/mcp-go/client"

	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
	"github.com/felixgeelhaar/buraco/pkg/domain/quality"
)

const (
	promptURI       = "buraco://prompt"
	reportSchemaURI = "buraco://schema/report"
)

// Client is a typed Go client for the Buraco MCP server.
type Client struct {
	mcp           *client.Client
	retryCfg      retry.Config
	timeout       time.Duration
	maxImageBytes int
}

// NewClient creates a new SDK client wrapping the given MCP transport.
func NewClient(transport client.Transport, opts ...Option) *Client {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Client{
		mcp:           client.New(transport, client.WithTimeout(o.timeout)),
		timeout:       o.timeout,
		maxImageBytes: o.maxImageBytes,
		retryCfg: retry.Config{
			MaxAttempts:   o.maxAttempts,
			InitialDelay:  o.initialDelay,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Initialize performs the MCP initialize handshake.
func (c *Client) Initialize(ctx context.Context) (*client.ServerInfo, error) {
	return c.mcp.Initialize(ctx)
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.mcp.Close()
}

// call invokes a tool with retry. Tool errors are not retried.
func (c *Client) call(ctx context.Context, tool string, args map[string]any) (*client.ToolResult, error) {
	r := retry.New[*client.ToolResult](c.retryCfg)
	result, err := r.Do(ctx, func(ctx context.Context) (*client.ToolResult, error) {
		return c.mcp.CallTool(ctx, tool, args)
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", tool, err)
	}
	if result.IsError {
		msg := ""
		if len(result.Content) > 0 {
			msg = result.Content[0].Text
		}
		return nil, &ToolError{Tool: tool, Message: msg}
	}
	return result, nil
}

func unmarshalText[T any](result *client.ToolResult) (*T, error) {
	text, err := textResult(result)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &v, nil
}

func textResult(result *client.ToolResult) (string, error) {
	if len(result.Content) == 0 {
		return "", ErrNoContent
	}
	return result.Content[0].Text, nil
}

// AssessImage runs the quality gate without calling the model.
func (c *Client) AssessImage(ctx context.Context, img Image) (*quality.Report, error) {
	args, err := img.args(c.maxImageBytes)
	if err != nil {
		return nil, err
	}
	res, err := c.call(ctx, "buraco_assess_image", args)
	if err != nil {
		return nil, err
	}
	return unmarshalText[quality.Report](res)
}

// AnalyzeImage grades the photo. With force the model is called even
// when the quality gate fails.
func (c *Client) AnalyzeImage(ctx context.Context, img Image, force bool) (*AnalyzeResult, error) {
	args, err := img.args(c.maxImageBytes)
	if err != nil {
		return nil, err
	}
	if force {
		args["force"] = true
	}
	res, err := c.call(ctx, "buraco_analyze_image", args)
	if err != nil {
		return nil, err
	}
	return unmarshalText[AnalyzeResult](res)
}

// ExtractSeverity parses a model answer the same way the server does.
func (c *Client) ExtractSeverity(ctx context.Context, text string) (*SeverityResult, error) {
	res, err := c.call(ctx, "buraco_extract_severity", map[string]any{"text": text})
	if err != nil {
		return nil, err
	}
	return unmarshalText[SeverityResult](res)
}

// LookupCEP resolves a Brazilian ZIP code.
func (c *Client) LookupCEP(ctx context.Context, cep string) (*geo.Address, error) {
	res, err := c.call(ctx, "buraco_lookup_cep", map[string]any{"cep": cep})
	if err != nil {
		return nil, err
	}
	return unmarshalText[geo.Address](res)
}

// GetPrompt reads the buraco://prompt resource.
func (c *Client) GetPrompt(ctx context.Context) (*PromptInfo, error) {
	rc, err := c.mcp.ReadResource(ctx, promptURI)
	if err != nil {
		return nil, fmt.Errorf("read prompt resource: %w", err)
	}
	var info PromptInfo
	if err := json.Unmarshal([]byte(rc.Text), &info); err != nil {
		return nil, fmt.Errorf("unmarshal prompt: %w", err)
	}
	return &info, nil
}

// ReportSchema returns the JSON schema of exported reports.
func (c *Client) ReportSchema(ctx context.Context) (string, error) {
	rc, err := c.mcp.ReadResource(ctx, reportSchemaURI)
	if err != nil {
		return "", fmt.Errorf("read report schema: %w", err)
	}
	return rc.Text, nil
}
