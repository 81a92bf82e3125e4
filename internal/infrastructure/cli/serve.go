package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/httpapi"
	inframcp "github.com/felixgeelhaar/buraco/internal/infrastructure/mcp"
)

var (
	serveAddr    string
	serveMCPAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wizard HTTP API",
	Long: `Serves the session API under /api and, with --mcp-addr, the MCP tools
over HTTP on a second listener. Idle sessions expire after 30 minutes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer services.Close()
		defer services.Logger.Sync()

		addr := serveAddr
		if addr == "" {
			addr = services.Config.HTTP.Addr
		}
		mcpAddr := serveMCPAddr
		if mcpAddr == "" {
			mcpAddr = services.Config.HTTP.MCPAddr
		}

		router := httpapi.NewRouter(httpapi.RouterConfig{
			Log:       services.Logger,
			Intake:    services.Intake,
			Dispatch:  services.Dispatch,
			Addresses: services.Addresses,
			Events:    services.Events,
		})

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			services.RunSweeper(ctx)
			return nil
		})
		g.Go(func() error {
			// Open event streams hold their requests until the broker closes.
			return httpapi.Serve(ctx, addr, router, services.Logger, services.Events.Close)
		})
		if mcpAddr != "" {
			srv, err := inframcp.NewServerFromServices(services)
			if err != nil {
				return fmt.Errorf("failed to initialize MCP server: %w", err)
			}
			g.Go(func() error {
				services.Logger.Info("mcp listening", "addr", mcpAddr)
				return srv.ServeHTTP(ctx, mcpAddr)
			})
		}
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (default from config, :8080)")
	serveCmd.Flags().StringVar(&serveMCPAddr, "mcp-addr", "", "Also serve MCP over HTTP on this address")
	RootCmd.AddCommand(serveCmd)
}
