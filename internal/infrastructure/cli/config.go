package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage buraco.yaml",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter buraco.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultFile
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return NewCLIError(fmt.Sprintf("%s already exists", path), "Pass --force to overwrite it", nil)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		if err := config.Save(path, config.Default()); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ wrote %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "  Keep API keys in GEMINI_API_KEY and GOOGLE_MAPS_API_KEY rather than in the file.")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		masked := *cfg
		masked.AI.APIKey = mask(cfg.AI.APIKey)
		masked.Maps.APIKey = mask(cfg.Maps.APIKey)
		masked.Webhook.Secret = mask(cfg.Webhook.Secret)
		masked.GitHub.Token = mask(cfg.GitHub.Token)
		masked.Log.HashSalt = mask(cfg.Log.HashSalt)
		if err := writeYAML(cmd.OutOrStdout(), masked); err != nil {
			return err
		}
		yellow := color.New(color.FgYellow)
		for _, w := range cfg.Warnings() {
			yellow.Fprintf(cmd.ErrOrStderr(), "⚠ %s\n", w)
		}
		return nil
	},
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	RootCmd.AddCommand(configCmd)
}
