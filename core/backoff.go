package core

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultMaxRetries bounds retries after the initial attempt.
	DefaultMaxRetries = 3
	// DefaultBackoffBase is the exponent base for the wait schedule.
	DefaultBackoffBase = 1.5
)

// Backoff is an exponential wait schedule: the wait before retrying
// attempt N (0-based) is Base^N seconds. With the defaults that yields
// waits of 1s, 1.5s and 2.25s.
type Backoff struct {
	Base       float64
	MaxRetries int
}

// NewBackoff creates a schedule, substituting defaults for zero values.
func NewBackoff(base float64, maxRetries int) Backoff {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return Backoff{Base: base, MaxRetries: maxRetries}
}

// Attempts returns the total number of tries including the first one.
func (b Backoff) Attempts() int {
	return b.MaxRetries + 1
}

// Wait returns the pause before retrying the given 0-based attempt.
func (b Backoff) Wait(attempt int) time.Duration {
	return time.Duration(math.Pow(b.Base, float64(attempt)) * float64(time.Second))
}

// sleepContext pauses for d, aborting early if ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
