// Package geo holds the HTTP adapters for ZIP lookup and geocoding, plus
// the keyed caches placed in front of them.
package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
)

const defaultHTTPTimeout = 10 * time.Second

// maxBodyBytes bounds upstream responses; both APIs answer in a few KB.
const maxBodyBytes = 1 << 20

type endpoint struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config
}

type Option func(*endpoint)

// WithBaseURL points the client at another server (tests, proxies).
func WithBaseURL(u string) Option {
	return func(e *endpoint) { e.baseURL = u }
}

func WithHTTPClient(c *http.Client) Option {
	return func(e *endpoint) {
		if c != nil {
			e.httpClient = c
		}
	}
}

// WithRetry sets how often transport failures and 5xx answers are retried.
func WithRetry(maxAttempts int, initialDelay time.Duration) Option {
	return func(e *endpoint) {
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		e.retryConfig.MaxAttempts = maxAttempts
		e.retryConfig.InitialDelay = initialDelay
	}
}

func newEndpoint(baseURL string, opts []Option) endpoint {
	e := endpoint{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  200 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

type upstreamResponse struct {
	status int
	body   []byte
}

// get fetches url, retrying transport errors and 5xx answers. Other
// statuses are returned to the caller to interpret.
func (e endpoint) get(ctx context.Context, rawURL string) (upstreamResponse, error) {
	r := retry.New[upstreamResponse](e.retryConfig)
	resp, err := r.Do(ctx, func(ctx context.Context) (upstreamResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return upstreamResponse{}, stripURL(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := e.httpClient.Do(req)
		if err != nil {
			return upstreamResponse{}, stripURL(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return upstreamResponse{}, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return upstreamResponse{}, fmt.Errorf("upstream returned status: %s", resp.Status)
		}
		return upstreamResponse{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		return upstreamResponse{}, fmt.Errorf("%w: %v", geo.ErrLookupFailed, err)
	}
	return resp, nil
}

// stripURL drops the request URL from transport errors. Geocoding URLs
// carry the API key in their query.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
