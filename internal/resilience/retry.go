package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff bounds the retries of one operation.
type Backoff struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Base is the delay ceiling before the first retry. It doubles per retry.
	Base time.Duration
	// Max caps the delay ceiling.
	Max time.Duration
}

// DefaultBackoff tries three times starting at 250ms.
func DefaultBackoff() Backoff {
	return Backoff{Attempts: 3, Base: 250 * time.Millisecond, Max: 5 * time.Second}
}

// NewBackoff builds a Backoff allowing maxRetries retries after the first try.
func NewBackoff(maxRetries int) Backoff {
	b := DefaultBackoff()
	if maxRetries >= 0 {
		b.Attempts = maxRetries + 1
	}
	return b
}

// delay returns a full-jitter wait for the given retry (0-based).
func (b Backoff) delay(retry int) time.Duration {
	ceil := b.Base << retry
	if ceil <= 0 || ceil > b.Max {
		ceil = b.Max
	}
	if ceil <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(ceil) + 1))
}

// Retry runs fn until it succeeds, returns a non-transient error, the
// attempts run out or ctx is done. op names the operation in retry logs.
func Retry[T any](ctx context.Context, b Backoff, op string, fn func(context.Context) (T, error)) (T, error) {
	if b.Attempts <= 0 {
		b.Attempts = 1
	}
	var (
		zero T
		err  error
	)
	for i := 0; i < b.Attempts; i++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !IsTransient(err) || i == b.Attempts-1 {
			break
		}

		wait := b.delay(i)
		zap.L().Debug("resilience: retrying",
			zap.String("op", op),
			zap.Int("attempt", i+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, err
		case <-t.C:
		}
	}
	return zero, err
}
