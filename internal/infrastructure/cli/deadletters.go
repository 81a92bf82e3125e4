package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/webhook"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/wiring"
)

var (
	deadLetterFile   string
	deadLetterOutput string
)

var deadLettersCmd = &cobra.Command{
	Use:   "dead-letters",
	Short: "List webhook deliveries that exhausted their retries",
	Long: `Reads the dead letter file (webhook.dead_letter in buraco.yaml, default
` + wiring.DefaultDeadLetterFile + `) and prints one line per failed delivery.
Resend a report with 'buraco dispatch'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutput(deadLetterOutput); err != nil {
			return err
		}
		path := deadLetterFile
		if path == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path = cfg.Webhook.DeadLetter
		}
		if path == "" {
			path = wiring.DefaultDeadLetterFile
		}

		entries, err := webhook.NewDeadLetterStore(path).ReadAll()
		if err != nil {
			return fmt.Errorf("failed to read dead letters: %w", err)
		}

		w := cmd.OutOrStdout()
		switch deadLetterOutput {
		case "json":
			return writeJSON(w, entries)
		case "yaml":
			return writeYAML(w, entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(w, "No dead letters.")
			return nil
		}
		for _, dl := range entries {
			fmt.Fprintf(w, "%s  %-10s %s  %d attempts: %s\n",
				dl.Timestamp.Format("2006-01-02 15:04:05"), dl.Endpoint, dl.SessionID, dl.Attempts, dl.Error)
		}
		return nil
	},
}

func init() {
	deadLettersCmd.Flags().StringVar(&deadLetterFile, "file", "", "Dead letter file (default webhook.dead_letter from config)")
	deadLettersCmd.Flags().StringVarP(&deadLetterOutput, "output", "o", "human", "Output format (human, json, yaml)")
	RootCmd.AddCommand(deadLettersCmd)
}
