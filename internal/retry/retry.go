// Package retry runs an operation a bounded number of times, sleeping
// between failed attempts according to a Policy.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default values applied by Policy.withDefaults.
const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 60 * time.Second
)

// Policy describes how an operation is retried.
type Policy struct {
	// Name identifies the operation in log lines.
	Name string

	// MaxAttempts is the total number of times the operation runs,
	// including the first. Zero means DefaultMaxAttempts.
	MaxAttempts int

	// Delay returns how long to wait after the retries-th failed retry
	// (0 after the first failure). Nil means a constant DefaultDelay.
	Delay func(retries int) time.Duration

	// ShouldRetry reports whether err is worth another attempt. Nil
	// retries every error.
	ShouldRetry func(err error) bool
}

// Exponential returns a delay function yielding base, 2*base, 4*base, ...
func Exponential(base time.Duration) func(int) time.Duration {
	return func(retries int) time.Duration {
		return base << uint(retries)
	}
}

// Constant returns a delay function that always yields d.
func Constant(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Delay == nil {
		p.Delay = Constant(DefaultDelay)
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = func(error) bool { return true }
	}
	return p
}

// policyBackOff adapts a Policy to backoff.BackOff.
type policyBackOff struct {
	policy  Policy
	retries int
}

func (b *policyBackOff) NextBackOff() time.Duration {
	if b.retries >= b.policy.MaxAttempts-1 {
		return backoff.Stop
	}
	d := b.policy.Delay(b.retries)
	b.retries++
	if d < 0 {
		d = 0
	}
	return d
}

func (b *policyBackOff) Reset() { b.retries = 0 }

// Do runs fn until it succeeds, the policy's attempts are exhausted, the
// policy declines to retry, or ctx is done. The error of the last attempt is
// returned on failure; a done context returns ctx.Err().
func Do[T any](ctx context.Context, p Policy, logger *slog.Logger, fn func(context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	attempt := 0
	op := func() (T, error) {
		attempt++
		res, err := fn(ctx)
		if err != nil && !p.ShouldRetry(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	notify := func(err error, next time.Duration) {
		logger.Debug("retrying",
			"operation", p.Name,
			"attempt", attempt,
			"max_attempts", p.MaxAttempts,
			"next", next,
			"error", err,
		)
	}

	bo := backoff.WithContext(&policyBackOff{policy: p}, ctx)
	return backoff.RetryNotifyWithData(op, bo, notify)
}
