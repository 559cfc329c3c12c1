package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt, so an
	// operation runs at most MaxRetries+1 times.
	// Default: 3
	MaxRetries int

	// InitialBackoff is the delay before the first retry.
	// Default: 100ms
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between retries.
	// Default: 30s
	MaxBackoff time.Duration

	// BackoffFactor is the exponential backoff multiplier.
	// Default: 2.0
	BackoffFactor float64

	// JitterFactor scales each delay by a uniform random factor in
	// [1-JitterFactor, 1+JitterFactor]. Zero disables jitter.
	// Default: 0
	JitterFactor float64

	// RetryIf determines if an error should trigger a retry. Errors outside
	// the allow-list propagate immediately without retrying or sleeping.
	// Default: all non-nil errors trigger retry.
	RetryIf func(err error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Backoff returns the deterministic delay before the given retry attempt
// (1-based), without jitter: min(initial * factor^(attempt-1), max).
// The delay is monotonically non-decreasing until the cap.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	multiplier := math.Pow(c.BackoffFactor, float64(attempt-1))
	delay := time.Duration(float64(c.InitialBackoff) * multiplier)
	if delay > c.MaxBackoff || delay < 0 {
		delay = c.MaxBackoff
	}
	return delay
}

// Retry implements bounded retry with exponential backoff and jitter.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	// Apply defaults
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 100 * time.Millisecond
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffFactor <= 0 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFactor < 0 {
		config.JitterFactor = 0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}

	return &Retry{config: config}
}

// Execute runs the operation with retry logic. The last error is returned
// after retries are exhausted; a non-retryable error aborts after a single
// call.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	attempts := r.config.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(ctx)

		if err == nil {
			return nil
		}

		lastErr = err

		// Errors outside the allow-list propagate immediately.
		if !r.config.RetryIf(err) {
			return err
		}

		if attempt >= attempts {
			break
		}

		delay := r.delay(attempt)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		// Wait for delay or context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

func (r *Retry) delay(attempt int) time.Duration {
	delay := r.config.Backoff(attempt)

	if r.config.JitterFactor > 0 && delay > 0 {
		// Uniform jitter in [1-j, 1+j]; individual samples may shrink or
		// grow but the expected delay stays monotonic.
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		factor := 1 + r.config.JitterFactor*(2*rand.Float64()-1)
		delay = time.Duration(float64(delay) * factor)
	}

	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
