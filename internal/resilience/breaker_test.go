package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time      { return c.t }
func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func fail(context.Context) (int, error) { return 0, errors.New("boom") }
func ok(context.Context) (int, error)   { return 7, nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("cellartracker", BreakerSettings{Threshold: 3, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := Call(ctx, b, fail)
		require.Error(t, err)
	}
	assert.Equal(t, Open, b.State())

	called := false
	_, err := Call(ctx, b, func(context.Context) (int, error) {
		called = true
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b := NewBreaker("vivino", BreakerSettings{Threshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	_, _ = Call(ctx, b, fail)
	v, err := Call(ctx, b, ok)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 0, b.failures)

	_, _ = Call(ctx, b, fail)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker("decanter", BreakerSettings{Threshold: 1, Cooldown: 30 * time.Second})
	b.now = c.now
	ctx := context.Background()

	_, _ = Call(ctx, b, fail)
	require.Equal(t, Open, b.State())

	c.add(31 * time.Second)
	assert.Equal(t, HalfOpen, b.State())

	// Failed probe reopens.
	_, _ = Call(ctx, b, fail)
	assert.Equal(t, Open, b.State())

	c.add(31 * time.Second)
	_, err := Call(ctx, b, ok)
	require.NoError(t, err)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_CallerCancelDoesNotCount(t *testing.T) {
	b := NewBreaker("vinous", BreakerSettings{Threshold: 1, Cooldown: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Call(ctx, b, func(ctx context.Context) (int, error) { return 0, ctx.Err() })
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Closed, b.State())
	assert.Equal(t, 0, b.failures)
}

func TestNewBreakerSettings(t *testing.T) {
	assert.Equal(t, DefaultBreakerSettings(), NewBreakerSettings(0, 0))
	s := NewBreakerSettings(5, 10)
	assert.Equal(t, 5, s.Threshold)
	assert.Equal(t, 10*time.Second, s.Cooldown)
}

func TestBreakers_ForAndSnapshot(t *testing.T) {
	r := NewBreakers(BreakerSettings{Threshold: 1, Cooldown: time.Hour})

	var wg sync.WaitGroup
	got := make([]*Breaker, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = r.For("wine-searcher")
		}(i)
	}
	wg.Wait()
	for _, b := range got {
		assert.Same(t, got[0], b)
	}

	_, _ = Call(context.Background(), r.For("jancis"), fail)
	snap := r.Snapshot()
	assert.Equal(t, Closed, snap["wine-searcher"])
	assert.Equal(t, Open, snap["jancis"])
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "half-open", HalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
