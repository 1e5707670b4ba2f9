// ABOUTME: Retry policy shared by the OpenAI client and the YouTube fetcher
// ABOUTME: Exponential backoff with jitter from cenkalti/backoff, bounded by attempts and context
package util

import (
	"context"
	"errors"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// maxBackoff caps a single wait between attempts
const maxBackoff = 30 * time.Second

// Policy controls how many times an operation is retried and how long to wait
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	// Retryable decides whether an error is worth another attempt; nil retries everything
	Retryable func(error) bool
}

// BackOff returns the wait schedule for p: the first retry waits BaseDelay,
// each later one doubles it with +/-25% jitter, up to MaxRetries retries.
func (p Policy) BackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.RandomizationFactor = 0.25
	bo.Multiplier = 2
	bo.MaxInterval = maxBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()

	retries := max(p.MaxRetries, 0)
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries)), ctx)
}

// Do runs fn until it succeeds, returns a non-retryable error, runs out of
// attempts, or ctx is cancelled. fn may return backoff.Permanent to stop early.
// When attempts run out the error reports how many were made.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := 0
	stopped := false

	op := func() (T, error) {
		attempts++
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		var permanent *backoff.PermanentError
		switch {
		case errors.As(err, &permanent):
			stopped = true
			return result, err
		case ctx.Err() != nil, p.Retryable != nil && !p.Retryable(err):
			stopped = true
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	result, err := backoff.RetryWithData(op, p.BackOff(ctx))
	if err != nil && !stopped && ctx.Err() == nil {
		var zero T
		return zero, fmt.Errorf("failed after %d attempts: %w", attempts, err)
	}
	return result, err
}
