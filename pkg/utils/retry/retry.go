package retry

import (
	"context"
	"errors"
	"time"
)

// functions passed to Blocking return ErrRetry (or an error wrapping it)
// to ask for another attempt.
var ErrRetry = errors.New("retry")

// Backoff is a (blocking) function which returns when the next attempt may run.
//
// If the context is canceled while waiting, Backoff returns ctx.Err().
type Backoff func(context.Context) error

// StaticBackoff waits a fixed interval between attempts.
func StaticBackoff(interval time.Duration) Backoff {
	return ExponentialBackoff(interval, 1)
}

// ExponentialBackoff waits initialInterval * r^N before the N-th attempt.
func ExponentialBackoff(initialInterval time.Duration, r float64) Backoff {
	interval := initialInterval
	return func(ctx context.Context) error {
		timer := time.NewTimer(interval)
		defer func() {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			interval = time.Duration(int64(float64(interval) * r))
			return nil
		}
	}
}

// Blocking calls f until it returns nil or a non-retry error,
// waiting with b between attempts, at most maxAttempts times.
//
// When attempts run out, the last error is returned as is.
func Blocking[T any](ctx context.Context, b Backoff, maxAttempts int, f func() (T, error)) (T, error) {
	last := *new(T)
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		var err error
		last, err = f()
		if err == nil {
			return last, nil
		}
		lastErr = err
		if !errors.Is(err, ErrRetry) {
			return last, err
		}
		if err := b(ctx); err != nil {
			return last, err
		}
	}
	return last, lastErr
}
