package relayerApi

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"
)

// RetryConfig controls exponential backoff for relayer requests.
type RetryConfig struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func (c *RetryConfig) backoff(attempt int) time.Duration {
	delay := float64(c.InitialDelay)
	for i := 0; i < attempt; i++ {
		delay *= c.BackoffMultiplier
	}
	if delay > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(delay)
}

// isRetryable reports whether a failed request is worth repeating: network
// errors, 5xx and 429. Context cancellation never is.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var relayerErr *RelayerError
	if stderrors.As(err, &relayerErr) {
		return relayerErr.StatusCode >= http.StatusInternalServerError ||
			relayerErr.StatusCode == http.StatusTooManyRequests
	}

	var netErr net.Error
	return stderrors.As(err, &netErr)
}

// withRetry runs fn until it succeeds, fails with a non-retryable error, or
// exhausts cfg.MaxRetries. A nil cfg runs fn once.
func withRetry(ctx context.Context, cfg *RetryConfig, onRetry func(attempt int, err error), fn func() error) error {
	if cfg == nil {
		return fn()
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxRetries || !isRetryable(lastErr) {
			return lastErr
		}

		if onRetry != nil {
			onRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(cfg.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
