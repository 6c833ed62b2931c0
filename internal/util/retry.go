package util

import (
	"context"
	"errors"
	"time"
)

// Backoff configures RetryWithBackoff. The delay starts at Initial and
// doubles after every failed attempt up to Max. A zero Initial retries
// immediately.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// RetryWithBackoff calls fn until it succeeds, b.Attempts is exhausted or ctx
// is done. If b.Attempts <= 0, fn is called once. Context errors returned by
// fn end the loop immediately; otherwise the last error is returned.
func RetryWithBackoff[T any](ctx context.Context, b Backoff, fn func(context.Context) (T, error)) (T, error) {
	attempts := b.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var zero T
	var lastErr error
	delay := b.Initial
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err

		if delay <= 0 || i == attempts-1 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if b.Max > 0 && delay > b.Max {
			delay = b.Max
		}
	}
	return zero, lastErr
}
