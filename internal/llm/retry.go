package llm

import (
	"context"
	"math/rand/v2"
	"time"
)

// Policy is a bounded-attempt retry schedule with exponential backoff and
// optional full jitter. The zero value is invalid; use NewPolicy.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          bool

	// sleep is replaced in tests with a fake clock.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPolicy(maxAttempts int, initial, max time.Duration, multiplier float64, jitter bool) Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if initial <= 0 {
		initial = time.Millisecond
	}
	if multiplier < 1.0 {
		multiplier = 1.0
	}
	return Policy{
		MaxAttempts:     maxAttempts,
		InitialInterval: initial,
		MaxInterval:     max,
		Multiplier:      multiplier,
		Jitter:          jitter,
		sleep:           sleepCtx,
	}
}

// WithSleep returns a copy of the policy using the given sleep function.
func (p Policy) WithSleep(sleep func(ctx context.Context, d time.Duration) error) Policy {
	p.sleep = sleep
	return p
}

// Backoff returns the delay before the given attempt (1-based; attempt 1 has
// no delay).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	backoff := p.InitialInterval
	for i := 2; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * p.Multiplier)
		if p.MaxInterval > 0 && backoff > p.MaxInterval {
			backoff = p.MaxInterval
			break
		}
	}
	if p.Jitter {
		// Full jitter: uniform in [0, backoff].
		return time.Duration(rand.Int64N(int64(backoff) + 1))
	}
	return backoff
}

// Do invokes fn up to MaxAttempts times, backing off between attempts.
// Only transient errors are retried; a permanent error or exhausted budget
// returns the final error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) (*Response, error)) (*Response, error) {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.Backoff(attempt)); err != nil {
				return nil, err
			}
		}
		resp, err := fn(ctx)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsTransient(err) {
			break
		}
	}
	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
