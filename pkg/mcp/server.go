// Package mcp lets another Go program embed the Buraco MCP server.
package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/config"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/logger"
	infra "github.com/felixgeelhaar/buraco/internal/infrastructure/mcp"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/wiring"
)

// Server exposes the MCP server implementation from the infrastructure layer.
type Server = infra.Server

// NewServer loads configPath (buraco.yaml when empty) plus the environment
// and wires every service behind the server. Call closeFn when done.
func NewServer(ctx context.Context, configPath string) (srv *Server, closeFn func() error, err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	services, err := wiring.BuildAppServices(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	srv, err = infra.NewServerFromServices(services)
	if err != nil {
		_ = services.Close()
		return nil, nil, err
	}
	return srv, services.Close, nil
}
