package sdk

import "time"

// DefaultMaxImageBytes matches the largest image the server accepts.
const DefaultMaxImageBytes = 20 << 20

type options struct {
	timeout       time.Duration
	maxAttempts   int
	initialDelay  time.Duration
	maxImageBytes int
}

// The default timeout leaves room for the server's own model timeout
// (60s by default) on buraco_analyze_image.
func defaultOptions() options {
	return options{
		timeout:       90 * time.Second,
		maxAttempts:   3,
		initialDelay:  500 * time.Millisecond,
		maxImageBytes: DefaultMaxImageBytes,
	}
}

// Option configures the SDK client.
type Option func(*options)

// WithTimeout bounds each tool call, including the model call behind
// AnalyzeImage.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetry sets how often transport failures are retried. Tool errors,
// such as an unknown CEP, are never retried.
func WithRetry(maxAttempts int, initialDelay time.Duration) Option {
	return func(o *options) {
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		o.maxAttempts = maxAttempts
		o.initialDelay = initialDelay
	}
}

// WithMaxImageBytes rejects inline photos above n bytes before they are
// encoded and sent.
func WithMaxImageBytes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxImageBytes = n
		}
	}
}
