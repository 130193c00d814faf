// Package retry re-attempts a single flaky operation with exponential
// backoff. This is same-operation retry for download and delivery I/O;
// cross-backend fallback lives in internal/chain and never retries.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// Config holds retry tuning.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultConfig is plenty for podcast CDNs and the Telegram API.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, BaseDelay: 1 * time.Second}
}

// WithBackoff runs operation until it succeeds, the error is not worth
// retrying, or the attempts are spent. Delay doubles per attempt with
// jitter up to one BaseDelay.
func WithBackoff(ctx context.Context, config Config, operation func(context.Context) error) error {
	var err error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err = operation(ctx); err == nil {
			return nil
		}

		if !isRetryableError(err) {
			return fmt.Errorf("non-retryable error: %w", err)
		}

		if attempt == config.MaxRetries {
			break
		}

		delay := config.BaseDelay*time.Duration(1<<attempt) + time.Duration(rand.Int63n(int64(config.BaseDelay)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries+1, err)
}

// isRetryableError treats network-level failures, server errors, and
// rate limiting as retryable. Other client errors are final, and errors
// of unknown shape get the benefit of the doubt.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "temporary failure") ||
		strings.Contains(msg, "network") {
		return true
	}

	if strings.Contains(msg, "status 5") || strings.Contains(msg, "status 429") {
		return true
	}
	if strings.Contains(msg, "status 4") {
		return false
	}

	return true
}

// HTTPStatusRetryable reports whether a response status deserves another
// attempt: server errors and rate limiting only.
func HTTPStatusRetryable(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
