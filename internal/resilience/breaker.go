// Package resilience guards calls to drinking-window sources with per-source
// circuit breakers and bounded retries.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State is the position of a circuit breaker.
type State int

const (
	// Closed lets calls through.
	Closed State = iota
	// Open rejects calls until the cooldown elapses.
	Open
	// HalfOpen admits a probe call.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrOpen is returned when a breaker rejects a call.
var ErrOpen = eris.New("circuit breaker is open")

// BreakerSettings controls when a breaker opens and how long it stays open.
type BreakerSettings struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int
	// Cooldown is how long an open breaker rejects calls.
	Cooldown time.Duration
}

// DefaultBreakerSettings opens after 3 failures for 60s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{Threshold: 3, Cooldown: 60 * time.Second}
}

// NewBreakerSettings builds settings from config values, falling back to the
// defaults for non-positive inputs.
func NewBreakerSettings(threshold, cooldownSecs int) BreakerSettings {
	s := DefaultBreakerSettings()
	if threshold > 0 {
		s.Threshold = threshold
	}
	if cooldownSecs > 0 {
		s.Cooldown = time.Duration(cooldownSecs) * time.Second
	}
	return s
}

// Breaker tracks consecutive failures of one source.
type Breaker struct {
	name     string
	settings BreakerSettings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
}

// NewBreaker creates a closed breaker for the named source.
func NewBreaker(name string, s BreakerSettings) *Breaker {
	d := DefaultBreakerSettings()
	if s.Threshold <= 0 {
		s.Threshold = d.Threshold
	}
	if s.Cooldown <= 0 {
		s.Cooldown = d.Cooldown
	}
	return &Breaker{name: name, settings: s, now: time.Now}
}

// Name returns the source the breaker guards.
func (b *Breaker) Name() string { return b.name }

// State reports the current position, accounting for an elapsed cooldown.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.cooledDown() {
		return HalfOpen
	}
	return b.state
}

// Call runs fn unless the breaker is open. A nil error closes the breaker; a
// non-nil error counts as a failure unless it is a context cancellation
// caused by the caller.
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.admit(); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	b.record(ctx, err)
	if err != nil {
		return zero, err
	}
	return v, nil
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Open {
		return nil
	}
	if b.cooledDown() {
		b.setState(HalfOpen)
		return nil
	}
	return eris.Wrapf(ErrOpen, "resilience: %s", b.name)
}

func (b *Breaker) record(ctx context.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.setState(Closed)
		return
	}
	if ctx.Err() != nil {
		// The caller gave up; the source did not fail.
		return
	}

	b.failures++
	if b.state == HalfOpen || b.failures >= b.settings.Threshold {
		b.openedAt = b.now()
		b.setState(Open)
	}
}

func (b *Breaker) cooledDown() bool {
	return b.now().Sub(b.openedAt) >= b.settings.Cooldown
}

func (b *Breaker) setState(to State) {
	if b.state == to {
		return
	}
	zap.L().Info("resilience: breaker state change",
		zap.String("source", b.name),
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
		zap.Int("failures", b.failures),
	)
	b.state = to
}

// Breakers hands out one Breaker per source name.
type Breakers struct {
	settings BreakerSettings

	mu sync.Mutex
	m  map[string]*Breaker
}

// NewBreakers creates an empty registry sharing settings.
func NewBreakers(s BreakerSettings) *Breakers {
	return &Breakers{settings: s, m: make(map[string]*Breaker)}
}

// For returns the breaker for name, creating it on first use.
func (r *Breakers) For(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.m[name]
	if !ok {
		b = NewBreaker(name, r.settings)
		r.m[name] = b
	}
	return b
}

// Snapshot returns the state of every breaker created so far.
func (r *Breakers) Snapshot() map[string]State {
	r.mu.Lock()
	bs := make([]*Breaker, 0, len(r.m))
	for _, b := range r.m {
		bs = append(bs, b)
	}
	r.mu.Unlock()

	out := make(map[string]State, len(bs))
	for _, b := range bs {
		out[b.name] = b.State()
	}
	return out
}
