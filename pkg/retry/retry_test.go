package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOpts(n int) []Option {
	return []Option{
		WithMaxAttempts(n),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(2 * time.Millisecond),
		WithJitter(0),
	}
}

func TestDo_RetriesRetryableUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("busy"))
		}
		return nil
	}, fastOpts(5)...)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPlainError(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	}, fastOpts(5)...)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDo_PermanentBeatsRetryIf(t *testing.T) {
	calls := 0
	boom := errors.New("bad request")
	opts := append(fastOpts(5), WithRetryIf(func(error) bool { return true }))
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(boom)
	}, opts...)

	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	retries := 0
	opts := append(fastOpts(3), WithOnRetry(func(int, error, time.Duration) { retries++ }))
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errors.New("down"))
	}, opts...)

	assert.EqualError(t, err, "down")
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithData(t *testing.T) {
	v, err := DoWithData(context.Background(), func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestCalculateDelay_Capped(t *testing.T) {
	r := New(WithInitialDelay(time.Second), WithMaxDelay(3*time.Second), WithJitter(0))
	assert.Equal(t, time.Second, r.calculateDelay(1))
	assert.Equal(t, 2*time.Second, r.calculateDelay(2))
	assert.Equal(t, 3*time.Second, r.calculateDelay(5))
}
