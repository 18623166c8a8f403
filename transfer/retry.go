package transfer

import (
	"context"
	"time"
)

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy is a bounded retry with linear backoff: before attempt n (n > 1)
// it waits BaseDelay * (n-1).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       SleepFunc
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Sleep:       SleepContext,
	}
}

// SleepContext is the wall-clock SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Delay returns the wait before the given 1-based attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	return p.BaseDelay * time.Duration(attempt-1)
}

// Do calls fn until it succeeds or MaxAttempts is reached, and returns the number
// of attempts made with the last error. It stops early, returning ctx.Err(), once
// ctx is done.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := max(p.MaxAttempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.Delay(attempt)); err != nil {
				return attempt - 1, err
			}
		}
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return attempt, nil
		}
		if err := ctx.Err(); err != nil {
			return attempt, err
		}
	}
	return maxAttempts, lastErr
}
