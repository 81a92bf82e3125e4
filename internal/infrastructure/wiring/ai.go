package wiring

import (
	"github.com/felixgeelhaar/buraco/internal/infrastructure/config"
	infraAI "github.com/felixgeelhaar/buraco/pkg/ai"
	"github.com/felixgeelhaar/buraco/pkg/domain/analysis"
)

// keylessAPIKey satisfies the key precondition for providers that run
// without one.
const keylessAPIKey = "none"

// LoadAnalyzer builds the analysis client for the configured provider,
// bounding every model call by the configured timeout.
func LoadAnalyzer(cfg *config.Config) (*analysis.Client, error) {
	factory, err := infraAI.NewProviderFactory(cfg.AI.Provider, cfg.AI.Model, cfg.AI.BaseURL)
	if err != nil {
		return nil, err
	}
	return analysis.NewClient(infraAI.WithTimeout(factory, cfg.AITimeout())), nil
}

func aiKey(cfg *config.Config) string {
	if cfg.AI.APIKey == "" && infraAI.Keyless(cfg.AI.Provider) {
		return keylessAPIKey
	}
	return cfg.AI.APIKey
}
