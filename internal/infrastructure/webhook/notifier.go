// Package webhook delivers finished pothole reports to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/buraco/pkg/domain/report"
)

// EventReportSubmitted is the event type of every payload.
const EventReportSubmitted = "report.submitted"

// SignatureHeader carries the HMAC of the body when a secret is set.
const SignatureHeader = "X-Buraco-Signature"

// Endpoint is one webhook receiver.
type Endpoint struct {
	Name       string        `json:"name" yaml:"name"`
	URL        string        `json:"url" yaml:"url"`
	Secret     string        `json:"-" yaml:"secret,omitempty"`
	MaxRetries int           `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	RetryDelay time.Duration `json:"retry_delay,omitempty" yaml:"retry_delay,omitempty"`
}

// Notifier posts report documents to an endpoint.
type Notifier struct {
	endpoint   Endpoint
	client     *http.Client
	deadLetter *DeadLetterStore
}

// NewNotifier creates a notifier. deadLetter may be nil.
func NewNotifier(ep Endpoint, deadLetter *DeadLetterStore) *Notifier {
	return &Notifier{
		endpoint: ep,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		deadLetter: deadLetter,
	}
}

// Payload is the JSON body sent to the endpoint.
type Payload struct {
	EventType string          `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      report.Document `json:"data"`
}

func (n *Notifier) Name() string {
	if n.endpoint.Name != "" {
		return "webhook:" + n.endpoint.Name
	}
	return "webhook"
}

// Send delivers doc, retrying failed attempts with exponential backoff.
// When every attempt fails the payload is written to the dead letter
// store and the last error is returned.
func (n *Notifier) Send(ctx context.Context, doc report.Document) (string, error) {
	if n.endpoint.URL == "" {
		return "", errors.New("webhook URL not configured")
	}
	body, err := json.Marshal(Payload{
		EventType: EventReportSubmitted,
		Timestamp: time.Now().UTC(),
		Data:      doc,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	attempts := n.endpoint.MaxRetries
	if attempts <= 0 {
		attempts = 3
	}
	delay := n.endpoint.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	r := retry.New[int](retry.Config{
		MaxAttempts:   attempts,
		InitialDelay:  delay,
		BackoffPolicy: retry.BackoffExponential,
	})
	status, err := r.Do(ctx, func(ctx context.Context) (int, error) {
		return n.send(ctx, body)
	})
	if err != nil {
		if n.deadLetter != nil {
			_ = n.deadLetter.Append(DeadLetter{
				Timestamp: time.Now().UTC(),
				Endpoint:  n.endpoint.Name,
				URL:       n.endpoint.URL,
				SessionID: doc.SessionID,
				Payload:   string(body),
				Error:     err.Error(),
				Attempts:  attempts,
			})
		}
		return "", err
	}
	return fmt.Sprintf("%s answered %d", n.endpoint.URL, status), nil
}

func (n *Notifier) send(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Buraco-Webhook/1.0")

	if n.endpoint.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, n.endpoint.Secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// Sign computes the HMAC-SHA256 of the payload using the secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign in constant time.
func Verify(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}
