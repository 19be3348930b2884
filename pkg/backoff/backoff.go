// Package backoff implements a bounded exponential backoff used to retry
// calls against the coordination service and the scheduler.
package backoff

import (
	"context"
	"math/rand"
	"time"
)

// BackOff contains parameters applied to a backoff function
type BackOff struct {
	attempts int
	// Duration is multiplied by Factor after each attempt
	Duration time.Duration
	Factor   float64
	// Duration of each attempt can not be greater than MaxDuration before applying Jitter
	MaxDuration time.Duration
	// Amount of jitter applied after each iteration
	JitterFactor float64
}

// Default returns the backoff used for collaborator calls:
// 200ms doubling up to 5s with 20% jitter.
func Default() *BackOff {
	return &BackOff{
		Duration:     200 * time.Millisecond,
		Factor:       2,
		MaxDuration:  5 * time.Second,
		JitterFactor: 0.2,
	}
}

// NextDuration returns duration for next attempt
func (b *BackOff) NextDuration() time.Duration {
	b.attempts++

	duration := b.Duration

	if b.Factor != 0 {
		b.Duration = time.Duration(float64(b.Duration) * b.Factor)
		if b.MaxDuration > 0 && b.Duration > b.MaxDuration {
			b.Duration = b.MaxDuration
		}
	}

	if b.JitterFactor > 0 {
		duration = b.Jitter(duration)
	}

	return duration
}

// Jitter returns a duration between initial and (initial + b.JitterFactor*initial)
func (b *BackOff) Jitter(initial time.Duration) time.Duration {
	factor := b.JitterFactor
	if factor <= 0 {
		factor = 1
	}

	return initial + time.Duration(rand.Float64()*factor*float64(initial))
}

// Attempts returns number of attempts tried
func (b *BackOff) Attempts() int {
	return b.attempts
}

// Permanent wraps an error that must not be retried
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string {
	return p.Err.Error()
}

// Unwrap returns the wrapped error
func (p *Permanent) Unwrap() error {
	return p.Err
}

// Retry calls fn until it succeeds, returns a *Permanent error, ctx is done or
// maxAttempts calls have been made. The last error seen is returned, with
// any Permanent wrapper removed.
func Retry(ctx context.Context, b *BackOff, maxAttempts int, fn func() error) error {
	if b == nil {
		b = Default()
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for i := 0; i < maxAttempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if p, ok := err.(*Permanent); ok {
			return p.Err
		}
		if i == maxAttempts-1 {
			break
		}

		t := time.NewTimer(b.NextDuration())
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
	return err
}
