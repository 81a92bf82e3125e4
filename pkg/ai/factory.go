package ai

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/buraco/pkg/domain/ai"
)

// NewProviderFactory returns the factory for a configured provider name.
// Vision support is required, so only backends that accept inline images
// are listed. baseURL only applies to ollama.
func NewProviderFactory(providerName, modelName, baseURL string) (ai.ProviderFactory, error) {
	switch strings.ToLower(strings.TrimSpace(providerName)) {
	case "gemini", "":
		return GeminiFactory(modelName), nil
	case "openai":
		return func(apiKey string) ai.Provider {
			return NewOpenAIProvider(modelName, apiKey)
		}, nil
	case "ollama":
		return OllamaFactory(modelName, baseURL), nil
	case "mock":
		return func(string) ai.Provider {
			return &MockProvider{Model: modelName}
		}, nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s (supported: gemini, openai, ollama, mock)", providerName)
	}
}

// Keyless reports whether a provider runs without an API key.
func Keyless(providerName string) bool {
	switch strings.ToLower(strings.TrimSpace(providerName)) {
	case "mock", "ollama":
		return true
	}
	return false
}
