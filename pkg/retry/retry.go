// Package retry wraps units of work in exponential backoff with the error
// classification used by both the source and target API clients.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/sheetbridge/sheetbridge/engine/core"
	"github.com/sheetbridge/sheetbridge/pkg/logger"
)

const DefaultMaxDelay = 60 * time.Second

// Config controls one retry policy. Zero values are invalid; policies are
// built once at startup from configuration.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       time.Duration
}

// NewConfig panics on non-positive attempts or delay: both come from
// validated configuration, so a violation is a programming error.
func NewConfig(maxAttempts int, initialDelay time.Duration) Config {
	if maxAttempts <= 0 {
		panic(fmt.Sprintf("retry: maxAttempts must be positive, got %d", maxAttempts))
	}
	if initialDelay <= 0 {
		panic(fmt.Sprintf("retry: initialDelay must be positive, got %s", initialDelay))
	}
	return Config{
		MaxAttempts:  maxAttempts,
		InitialDelay: initialDelay,
		MaxDelay:     DefaultMaxDelay,
	}
}

// Stats reports what a Do invocation actually did.
type Stats struct {
	Attempts int
	Retries  int
}

// Do runs op under the policy. Retryable failures are replayed with
// exponentially growing delays capped at MaxDelay; a server-indicated
// Retry-After acts as a floor on the next delay. Non-retryable failures and
// exhausted attempts return the last error unchanged.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	_, err := DoWithStats(ctx, cfg, op)
	return err
}

// DoWithStats is Do plus attempt accounting, used by tests and run summaries.
func DoWithStats(ctx context.Context, cfg Config, op func(ctx context.Context) error) (Stats, error) {
	if cfg.MaxAttempts <= 0 || cfg.InitialDelay <= 0 {
		panic(fmt.Sprintf("retry: invalid config %+v", cfg))
	}
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	var backoff retry.Backoff = retry.WithCappedDuration(maxDelay, retry.NewExponential(cfg.InitialDelay))
	if cfg.Jitter > 0 {
		backoff = retry.WithJitter(cfg.Jitter, backoff)
	}

	log := logger.FromContext(ctx)
	stats := Stats{}
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		stats.Attempts = attempt
		lastErr = op(ctx)
		if lastErr == nil {
			return stats, nil
		}
		if !IsRetryable(lastErr) || attempt == cfg.MaxAttempts {
			return stats, lastErr
		}
		delay, stop := backoff.Next()
		if stop {
			return stats, lastErr
		}
		if ra := core.RetryAfter(lastErr); ra > delay {
			delay = ra
		}
		log.Debug("retrying after failure",
			"attempt", attempt, "delay", delay, "error", lastErr)
		stats.Retries++
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-time.After(delay):
		}
	}
	return stats, lastErr
}

// IsRetryable implements the classification table: 404, 429 and 5xx replay;
// 401, 403 and the remaining 4xx do not; network-level failures replay;
// errors with no status and no recognizable code are treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if status := core.StatusCode(err); status != 0 {
		switch {
		case status == 404, status == 429:
			return true
		case status >= 500:
			return true
		case status >= 400:
			return false
		}
	}
	if e, ok := core.AsError(err); ok {
		switch e.Kind {
		case core.KindAuth, core.KindConfiguration, core.KindValidation,
			core.KindPermission, core.KindData:
			return false
		case core.KindConnection:
			return true
		}
	}
	if isNetworkError(err) {
		return true
	}
	// No status, no code: assume transient.
	return true
}

func isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, errno := range []syscall.Errno{
		syscall.ETIMEDOUT,
		syscall.ECONNABORTED,
		syscall.ECONNREFUSED,
		syscall.ENETUNREACH,
		syscall.EHOSTUNREACH,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
