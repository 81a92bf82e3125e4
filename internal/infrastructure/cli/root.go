package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	configPath string
	verbose    bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "buraco",
	Version: Version,
	Short:   "Report potholes with an AI severity assessment",
	Long: `Buraco turns a street photo into a pothole report.
It checks the photo's quality, asks a vision model how severe the damage is,
and maps the answer to a repair deadline. The address comes from a CEP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints a friendly error with a hint
// when one is known. This is called by main.main().
func Execute(ctx context.Context) error {
	err := RootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(RootCmd.ErrOrStderr(), MapError(err))
	}
	return err
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default ./buraco.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr from interactive commands")
}
