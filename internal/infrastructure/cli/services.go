package cli

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/config"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/logger"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/wiring"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, NewCLIError("could not load configuration", "Check --config or run 'buraco config init'", err)
	}
	return cfg, nil
}

// newLogger returns a discarding logger for interactive commands unless
// --verbose is set, so log lines do not interleave with their output.
func newLogger(cfg *config.Config, interactive bool) (*logger.Logger, error) {
	if interactive && !verbose {
		return logger.Nop(), nil
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return log.WithHashSalt(cfg.Log.HashSalt), nil
}

func loadServices(ctx context.Context, interactive bool) (*wiring.AppServices, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg, interactive)
	if err != nil {
		return nil, err
	}
	services, err := wiring.BuildAppServices(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build services: %w", err)
	}
	return services, nil
}
