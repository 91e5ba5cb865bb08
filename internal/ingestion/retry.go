package ingestion

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	maxRetries     = 3
	baseRetryDelay = 500 * time.Millisecond
)

// withRetry runs fn with exponential backoff: 500ms, 1s, 2s. Context
// cancellation aborts immediately without consuming an attempt.
func withRetry(ctx context.Context, log *logrus.Entry, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := baseRetryDelay * time.Duration(1<<attempt)
		log.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt + 1,
			"delay":   delay,
		}).WithError(lastErr).Warn("retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
