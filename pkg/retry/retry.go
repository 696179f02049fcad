// Package retry wraps provider calls with bounded exponential backoff.
//
// Only rate-limit failures are retried. Everything else, including network
// failures and service-unavailable responses, is returned on first
// occurrence; the caller classifies it.
package retry

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts = 3
	// BaseBackoff is the wait before the second attempt; it doubles after.
	BaseBackoff = 2 * time.Second
)

var rateLimitMarkers = []string{"rate limit", "resource_exhausted", "429"}

// IsRateLimit reports whether err looks like provider throttling.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs an operation with the rate-limit retry policy. The zero value
// is not usable; construct with New.
type Executor struct {
	logger      *slog.Logger
	sleep       SleepFunc
	maxAttempts int
	baseBackoff time.Duration
}

// Option customizes an Executor.
type Option func(*Executor)

// WithSleep replaces the backoff wait. Tests use it to avoid real delays.
func WithSleep(fn SleepFunc) Option {
	return func(e *Executor) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

// New creates an executor that logs failed attempts to logger.
func New(logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Executor{
		logger:      logger,
		sleep:       sleepWithContext,
		maxAttempts: MaxAttempts,
		baseBackoff: BaseBackoff,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute calls op until it succeeds, fails with a non-rate-limit error, or
// MaxAttempts calls have been made. On exhaustion the last error is returned
// unchanged.
func (e *Executor) Execute(ctx context.Context, label string, op func(context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		retryable := IsRateLimit(err)
		e.logger.Warn("provider call failed",
			slog.String("label", label),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", e.maxAttempts),
			slog.Bool("rate_limited", retryable),
			slog.String("error", err.Error()),
		)
		if !retryable || attempt == e.maxAttempts {
			break
		}

		if err := e.sleep(ctx, Backoff(e.baseBackoff, attempt)); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

// Backoff returns the wait after the given failed attempt (1-based):
// base, 2*base, 4*base, ...
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	backoff := base
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	return backoff
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
