// Package retry wraps a fallible call with bounded exponential-backoff
// retry. Every error is treated as retryable; there is no classification
// step, so a permanent 4xx is retried exactly like a dropped connection.
// The policy is deliberately isolated behind this package so a stricter
// error-classifying variant can be substituted without touching call sites.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy controls attempt count and backoff shape.
type Policy struct {
	Attempts  int           // total attempts, including the first
	BaseDelay time.Duration // delay before the second attempt
	MaxDelay  time.Duration // cap for the exponential growth
}

// DefaultPolicy mirrors the solver call site: 3 attempts, 400ms base,
// 2.5s cap.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, BaseDelay: 400 * time.Millisecond, MaxDelay: 2500 * time.Millisecond}
}

// Do runs fn up to p.Attempts times, sleeping between attempts (never after
// the final one) for min(MaxDelay, BaseDelay*2^i) scaled by a jitter factor
// drawn uniformly from [1.0, 1.25). Returns the first successful value or
// the last observed error once attempts are exhausted. The sleep is
// context-aware: cancellation aborts the wait and returns ctx.Err().
func Do[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var zero T
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff(p, i-1)):
			}
		}
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, lastErr
}

// backoff computes the delay after attempt index i (0-based).
func backoff(p Policy, i int) time.Duration {
	d := p.BaseDelay << uint(i)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	jitter := 1.0 + rand.Float64()*0.25
	return time.Duration(float64(d) * jitter)
}
