// Package resilience provides the retry-with-backoff helper replica
// links use to reconnect after a dropped socket.
package resilience

import (
	"context"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
)

// Retry runs fn with exponential backoff and full jitter, up to attempts
// times. delay is the initial backoff; it doubles after each failed
// attempt, capped at 60s so a link never backs off longer than a
// minute between reconnect tries. Returns the first success, or fn's
// last error once attempts are exhausted.
func Retry[T any](ctx context.Context, attempts int, delay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	if attempts <= 0 {
		return zero, nil
	}

	meter := otel.Meter("constdb")
	attemptCounter, _ := meter.Int64Counter("constdb_retry_attempts_total")
	successCounter, _ := meter.Int64Counter("constdb_retry_success_total")
	failCounter, _ := meter.Int64Counter("constdb_retry_fail_total")

	cur := delay
	var lastErr error
	for i := 0; i < attempts; i++ {
		v, err := fn()
		attemptCounter.Add(ctx, 1)
		if err == nil {
			successCounter.Add(ctx, 1)
			return v, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		if cur > 60*time.Second {
			cur = 60 * time.Second
		}
		sleep := time.Duration(rand.Int63n(int64(cur) + 1))
		select {
		case <-ctx.Done():
			failCounter.Add(ctx, 1)
			return zero, ctx.Err()
		case <-time.After(sleep):
		}
		cur *= 2
	}
	failCounter.Add(ctx, 1)
	return zero, lastErr
}
