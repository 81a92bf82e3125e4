package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/buraco/pkg/application"
	"github.com/felixgeelhaar/buraco/pkg/domain/report"
)

var (
	dispatchGitHub  string
	dispatchWebhook string
	dispatchSlack   string
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch REPORT.json",
	Short: "Send a saved report to the configured destinations",
	Long: `Validates a report written by 'buraco analyze -o json' or 'buraco watch'
and sends it to every destination: webhook, Slack and GitHub issues.
Flags override the destinations from buraco.yaml.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// #nosec G304 -- the user names the report
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read report: %w", err)
		}
		doc, err := report.ParseDocument(raw)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if dispatchGitHub != "" {
			cfg.GitHub.Repo = dispatchGitHub
			if cfg.GitHub.Token == "" {
				return NewCLIError("GitHub token missing", "Set GITHUB_TOKEN to file issues", nil)
			}
		}
		if dispatchWebhook != "" {
			cfg.Webhook.URL = dispatchWebhook
		}
		if dispatchSlack != "" {
			cfg.Slack.WebhookURL = dispatchSlack
		}

		log, err := newLogger(cfg, true)
		if err != nil {
			return err
		}
		sinks, err := wiring.BuildSinks(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		deliveries, err := application.NewDispatchService(log, sinks...).Dispatch(cmd.Context(), doc)
		printDeliveries(cmd, deliveries)
		return err
	},
}

func printDeliveries(cmd *cobra.Command, deliveries []application.Delivery) {
	w := cmd.OutOrStdout()
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	for _, d := range deliveries {
		if d.OK() {
			green.Fprintf(w, "✓ %s", d.Sink)
			if d.Ref != "" {
				fmt.Fprintf(w, " %s", d.Ref)
			}
			fmt.Fprintln(w)
			continue
		}
		red.Fprintf(w, "✗ %s: %s\n", d.Sink, d.Error)
	}
}

func init() {
	dispatchCmd.Flags().StringVar(&dispatchGitHub, "github", "", "File an issue in owner/repo (needs GITHUB_TOKEN)")
	dispatchCmd.Flags().StringVar(&dispatchWebhook, "webhook", "", "POST the report to this URL")
	dispatchCmd.Flags().StringVar(&dispatchSlack, "slack", "", "Post a summary to this Slack incoming webhook")
	RootCmd.AddCommand(dispatchCmd)
}
