package util

import (
	"context"
	"fmt"
	"time"
)

// Retry calls fn up to attempts times, sleeping baseDelay, 2*baseDelay,
// 4*baseDelay, ... between failures. It returns nil on the first success.
// A cancelled context wins over a pending backoff sleep.
//
// This is a transport-boundary helper (outbound chat sends); the data
// pipeline itself never retries beyond the deal resolver's title fallback.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(baseDelay << attempt):
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}
