// Package messaging posts report summaries to chat channels.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/felixgeelhaar/buraco/pkg/domain/report"
	"github.com/felixgeelhaar/buraco/pkg/domain/severity"
)

// SlackSink sends reports to a Slack incoming webhook URL.
type SlackSink struct {
	name   string
	url    string
	client *http.Client
}

func NewSlackSink(name, url string) *SlackSink {
	if name == "" {
		name = "default"
	}
	return &SlackSink{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SlackSink) Name() string { return "slack:" + s.name }

func (s *SlackSink) Send(ctx context.Context, doc report.Document) (string, error) {
	if s.url == "" {
		return "", fmt.Errorf("slack webhook URL not configured")
	}
	text := FormatSlackMessage(doc)

	payload := map[string]interface{}{
		"text": text,
		"blocks": []map[string]interface{}{
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return "slack message posted", nil
}

// FormatSlackMessage renders the one-message summary of doc.
func FormatSlackMessage(doc report.Document) string {
	emoji := ":grey_question:"
	if doc.Severity != nil {
		switch doc.Severity.Level() {
		case severity.LevelLow:
			emoji = ":large_green_circle:"
		case severity.LevelMedium:
			emoji = ":large_yellow_circle:"
		case severity.LevelHigh:
			emoji = ":large_orange_circle:"
		case severity.LevelCritical:
			emoji = ":red_circle:"
		}
	}
	msg := fmt.Sprintf("%s *%s*", emoji, doc.Title())
	if doc.Feedback != nil {
		msg += fmt.Sprintf("\n%s (%s)", doc.Feedback.Message, doc.Feedback.Deadline)
	}
	if doc.Location != nil && doc.Location.Coordinates != nil {
		msg += fmt.Sprintf("\n<https://www.google.com/maps?q=%s|Open map>", doc.Location.Coordinates.String())
	}
	return msg
}
