package core

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Sleeper abstracts time.Sleep for deterministic tests.
type Sleeper interface {
	Sleep(time.Duration)
}

// FuncSleeper wraps a function to satisfy Sleeper.
type FuncSleeper func(time.Duration)

// Sleep implements the Sleeper interface.
func (f FuncSleeper) Sleep(d time.Duration) { f(d) }

// BackoffStrategy holds retry parameters.
type BackoffStrategy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	Jitter      float64
	Sleeper     Sleeper
	Rand        func() float64
}

// DefaultBackoff is used for optimistic-concurrency writes of persisted state.
func DefaultBackoff() BackoffStrategy {
	return BackoffStrategy{
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    time.Second,
		MaxAttempts: 4,
		Jitter:      0.2,
	}
}

// Retry executes fn until it succeeds, returns a non-transient error, the
// attempts are exhausted or ctx is done. It returns the number of attempts
// made and the last error.
func (b BackoffStrategy) Retry(ctx context.Context, fn func(context.Context) error) (int, error) {
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = 1
	}
	if b.BaseDelay <= 0 {
		b.BaseDelay = 50 * time.Millisecond
	}
	if b.MaxDelay <= 0 {
		b.MaxDelay = time.Second
	}
	sleeper := b.Sleeper
	if sleeper == nil {
		sleeper = FuncSleeper(time.Sleep)
	}
	rnd := b.Rand
	if rnd == nil {
		rnd = rand.Float64
	}

	var err error
	for attempt := 1; attempt <= b.MaxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return attempt, nil
		}
		if !IsTransient(err) || attempt == b.MaxAttempts {
			return attempt, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt, err
		}
		delay := b.nextDelay(attempt)
		if b.Jitter > 0 {
			delay += time.Duration(float64(delay) * b.Jitter * rnd())
		}
		sleeper.Sleep(delay)
	}
	return b.MaxAttempts, err
}

func (b BackoffStrategy) nextDelay(attempt int) time.Duration {
	delay := float64(b.BaseDelay) * math.Pow(2, float64(attempt-1))
	if max := float64(b.MaxDelay); delay > max {
		delay = max
	}
	return time.Duration(delay)
}
