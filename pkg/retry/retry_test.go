package retry

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetbridge/sheetbridge/engine/core"
)

func statusErr(status int) error {
	err := core.NewConnectionError("simulated failure", nil)
	err.StatusCode = status
	return err
}

func TestIsRetryable(t *testing.T) {
	t.Run("Should retry 404, 429 and 5xx", func(t *testing.T) {
		assert.True(t, IsRetryable(statusErr(404)))
		assert.True(t, IsRetryable(statusErr(429)))
		assert.True(t, IsRetryable(statusErr(500)))
		assert.True(t, IsRetryable(statusErr(503)))
	})

	t.Run("Should not retry 401, 403 and remaining 4xx", func(t *testing.T) {
		assert.False(t, IsRetryable(statusErr(401)))
		assert.False(t, IsRetryable(statusErr(403)))
		assert.False(t, IsRetryable(statusErr(400)))
		assert.False(t, IsRetryable(statusErr(422)))
	})

	t.Run("Should retry network errnos", func(t *testing.T) {
		assert.True(t, IsRetryable(syscall.ECONNREFUSED))
		assert.True(t, IsRetryable(syscall.ETIMEDOUT))
		assert.True(t, IsRetryable(syscall.ENETUNREACH))
	})

	t.Run("Should treat unknown errors as transient", func(t *testing.T) {
		assert.True(t, IsRetryable(errors.New("socket hang up")))
	})

	t.Run("Should not retry auth or validation kinds", func(t *testing.T) {
		assert.False(t, IsRetryable(core.NewAuthError(core.AuthDeclined, "declined", nil)))
		assert.False(t, IsRetryable(core.NewValidationError("bad record")))
		assert.False(t, IsRetryable(core.NewPermissionError("no access")))
	})

	t.Run("Should not retry context cancellation", func(t *testing.T) {
		assert.False(t, IsRetryable(context.Canceled))
	})
}

func TestDoWithStats(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	t.Run("Should not retry a non-retryable failure", func(t *testing.T) {
		calls := 0
		stats, err := DoWithStats(t.Context(), cfg, func(context.Context) error {
			calls++
			return statusErr(401)
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 0, stats.Retries)
	})

	t.Run("Should replay a retryable failure until success", func(t *testing.T) {
		calls := 0
		stats, err := DoWithStats(t.Context(), cfg, func(context.Context) error {
			calls++
			if calls < 3 {
				return statusErr(500)
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 2, stats.Retries)
	})

	t.Run("Should return the last error after exhausting attempts", func(t *testing.T) {
		calls := 0
		_, err := DoWithStats(t.Context(), cfg, func(context.Context) error {
			calls++
			return statusErr(503)
		})

		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 503, core.StatusCode(err))
	})

	t.Run("Should honor Retry-After as a delay floor", func(t *testing.T) {
		calls := 0
		start := time.Now()
		err := Do(t.Context(), cfg, func(context.Context) error {
			calls++
			if calls == 1 {
				return core.NewRateLimitError("rate limit exceeded", 50*time.Millisecond, nil)
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("Should stop retrying when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		calls := 0
		_, err := DoWithStats(ctx, Config{MaxAttempts: 5, InitialDelay: time.Hour}, func(context.Context) error {
			calls++
			cancel()
			return statusErr(500)
		})

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("Should panic on invalid configuration", func(t *testing.T) {
		assert.Panics(t, func() { NewConfig(0, time.Second) })
		assert.Panics(t, func() { NewConfig(3, 0) })
	})
}
