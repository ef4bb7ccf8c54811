package publish

import (
	"context"
	"errors"
)

// RetryPolicy describes how a failed publish is repeated.
type RetryPolicy struct {
	// MaxAttempts is the total number of runs, at least 1.
	MaxAttempts int

	// Retryable decides whether an error warrants another attempt.
	// nil retries every error except context cancellation.
	Retryable func(error) bool

	// BeforeRetry runs between attempts. An error from it ends the loop.
	BeforeRetry func(attempt int, err error) error
}

// Do runs fn until it succeeds or the policy gives up, returning the last
// error. attempt starts at 1.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := max(p.MaxAttempts, 1)
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(attempt); lastErr == nil {
			return nil
		}
		if attempt == attempts || !p.retryable(lastErr) {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.BeforeRetry != nil {
			if err := p.BeforeRetry(attempt, lastErr); err != nil {
				return errors.Join(lastErr, err)
			}
		}
	}
	return lastErr
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
