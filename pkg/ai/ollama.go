package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/buraco/pkg/domain/ai"
)

const (
	defaultOllamaModel = "llava"
	defaultOllamaHost  = "http://localhost:11434"
)

// OllamaProvider talks to a local Ollama server. It needs a multimodal
// model such as llava or llama3.2-vision.
type OllamaProvider struct {
	Model      string
	host       string
	httpClient *http.Client
}

// NewOllamaProvider creates a provider for host (defaultOllamaHost when empty).
func NewOllamaProvider(model, host string) *OllamaProvider {
	if model == "" {
		model = defaultOllamaModel
	}
	if host == "" {
		host = defaultOllamaHost
	}
	return &OllamaProvider{Model: model, host: strings.TrimRight(host, "/")}
}

// OllamaFactory ignores the key; a local server has none.
func OllamaFactory(model, host string) ai.ProviderFactory {
	return func(string) ai.Provider {
		return NewOllamaProvider(model, host)
	}
}

func (p *OllamaProvider) ID() string {
	return "ollama:" + p.Model
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Images  []string       `json:"images,omitempty"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error"`
}

var safeModelName = regexp.MustCompile(`^[a-zA-Z0-9:._-]+$`)

func (p *OllamaProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if !safeModelName.MatchString(p.Model) {
		return nil, fmt.Errorf("invalid model name: %s", p.Model)
	}
	if req.Temperature < 0 {
		return nil, fmt.Errorf("invalid temperature")
	}

	oReq := ollamaRequest{
		Model:  p.Model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	}
	for _, img := range req.Images {
		oReq.Images = append(oReq.Images, base64.StdEncoding.EncodeToString(img.Data))
	}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		oReq.Options = &ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}

	body, err := json.Marshal(oReq)
	if err != nil {
		return nil, err
	}
	hReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hReq.Header.Set("Content-Type", "application/json")

	client := p.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(hReq)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ollama API: %w", err)
	}
	defer resp.Body.Close()

	var oResp ollamaResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&oResp)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && oResp.Error != "" {
			return nil, fmt.Errorf("ollama API error: status %d: %s", resp.StatusCode, oResp.Error)
		}
		return nil, fmt.Errorf("ollama API error: status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode ollama response: %w", decodeErr)
	}

	return &ai.CompletionResponse{
		Text:  strings.TrimSpace(oResp.Response),
		Model: p.Model,
		Usage: ai.TokenUsage{
			InputTokens:  oResp.PromptEvalCount,
			OutputTokens: oResp.EvalCount,
		},
	}, nil
}
