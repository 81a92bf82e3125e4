package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	inframcp "github.com/felixgeelhaar/buraco/internal/infrastructure/mcp"
)

var (
	mcpTransport string
	mcpAddr      string
	mcpOpenAPI   bool
	mcpImageRoot string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Buraco MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("BURACO_SKIP_MCP_START") == "true" {
			return nil
		}
		// stdout carries the stdio protocol, so logs stay on stderr.
		services, err := loadServices(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer services.Close()
		if mcpImageRoot != "" {
			services.Config.HTTP.ImageRoot = mcpImageRoot
		}

		server, err := inframcp.NewServerFromServices(services)
		if err != nil {
			return fmt.Errorf("failed to initialize MCP server: %w", err)
		}

		if mcpOpenAPI {
			data, err := server.OpenAPI()
			if err != nil {
				return fmt.Errorf("failed to generate OpenAPI document: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		return server.Serve(cmd.Context(), strings.ToLower(mcpTransport), mcpAddr)
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "Transport to use (stdio, http, ws)")
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", ":8081", "Address for http/ws transports")
	mcpCmd.Flags().StringVar(&mcpImageRoot, "image-root", "", "Directory the path argument may read photos from (required for path over http/ws)")
	mcpCmd.Flags().BoolVar(&mcpOpenAPI, "openapi", false, "Print an OpenAPI 3.0 document for the tools and exit")
	RootCmd.AddCommand(mcpCmd)
}
