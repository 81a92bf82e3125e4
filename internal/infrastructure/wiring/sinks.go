package wiring

import (
	"context"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/config"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/github"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/messaging"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/webhook"
	"github.com/felixgeelhaar/buraco/pkg/application"
)

// DefaultDeadLetterFile collects webhook payloads that exhausted retries.
const DefaultDeadLetterFile = "buraco-deadletter.jsonl"

// BuildSinks returns the dispatch targets cfg enables. GitHub issues need
// both repo and token.
func BuildSinks(ctx context.Context, cfg *config.Config) ([]application.Sink, error) {
	var sinks []application.Sink

	if cfg.Webhook.URL != "" {
		dlPath := cfg.Webhook.DeadLetter
		if dlPath == "" {
			dlPath = DefaultDeadLetterFile
		}
		sinks = append(sinks, webhook.NewNotifier(webhook.Endpoint{
			Name:       "default",
			URL:        cfg.Webhook.URL,
			Secret:     cfg.Webhook.Secret,
			MaxRetries: cfg.Webhook.MaxRetries,
		}, webhook.NewDeadLetterStore(dlPath)))
	}

	if cfg.Slack.WebhookURL != "" {
		sinks = append(sinks, messaging.NewSlackSink("default", cfg.Slack.WebhookURL))
	}

	if cfg.GitHub.Repo != "" && cfg.GitHub.Token != "" {
		issues, err := github.NewIssueSink(ctx, cfg.GitHub.Token, cfg.GitHub.Repo)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, issues)
	}
	return sinks, nil
}
