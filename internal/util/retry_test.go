// ABOUTME: Tests for the shared retry policy
// ABOUTME: Validates the backoff schedule, jitter bounds, and the generic retry loop
package util

import (
	"context"
	"errors"
	"testing"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyBackOff_ExponentialWithJitter(t *testing.T) {
	base := 100 * time.Millisecond
	bo := Policy{MaxRetries: 4, BaseDelay: base}.BackOff(context.Background())

	want := base
	for i := 0; i < 4; i++ {
		next := bo.NextBackOff()
		assert.GreaterOrEqual(t, next, want*3/4, "retry %d", i+1)
		assert.LessOrEqual(t, next, want*5/4, "retry %d", i+1)
		want *= 2
	}
	assert.Equal(t, backoff.Stop, bo.NextBackOff())
}

func TestPolicyBackOff_Capped(t *testing.T) {
	bo := Policy{MaxRetries: 20, BaseDelay: 10 * time.Second}.BackOff(context.Background())

	for i := 0; i < 20; i++ {
		// 37.5s is the 30s cap plus 25% jitter
		assert.LessOrEqual(t, bo.NextBackOff(), 37500*time.Millisecond)
	}
}

func TestPolicyBackOff_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bo := Policy{MaxRetries: 3, BaseDelay: time.Second}.BackOff(ctx)
	assert.Equal(t, backoff.Stop, bo.NextBackOff())
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), Policy{MaxRetries: 3, BaseDelay: time.Millisecond},
		func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUp(t *testing.T) {
	sentinel := errors.New("boom")
	calls := 0
	_, err := Do(context.Background(), Policy{MaxRetries: 2, BaseDelay: time.Millisecond},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, sentinel
		})

	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryable(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	_, err := Do(context.Background(), Policy{
		MaxRetries: 5,
		BaseDelay:  time.Millisecond,
		Retryable:  func(err error) bool { return !errors.Is(err, permanent) },
	}, func(ctx context.Context) (int, error) {
		calls++
		return 0, permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.NotContains(t, err.Error(), "failed after")
	assert.Equal(t, 1, calls)
}

func TestDo_PermanentStopsEarly(t *testing.T) {
	sentinel := errors.New("malformed")
	calls := 0
	_, err := Do(context.Background(), Policy{MaxRetries: 5, BaseDelay: time.Millisecond},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, backoff.Permanent(sentinel)
		})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	start := time.Now()
	_, err := Do(ctx, Policy{MaxRetries: 3, BaseDelay: time.Minute},
		func(ctx context.Context) (int, error) {
			calls++
			cancel()
			return 0, errors.New("transient")
		})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Second)
}
