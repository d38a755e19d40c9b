// Package cascade resolves a wine's drinking window by consulting sources in
// priority order and falling back to rules when none has usable data.
package cascade

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cellar-cli/internal/cache"
	"github.com/sells-group/cellar-cli/internal/model"
	"github.com/sells-group/cellar-cli/internal/rules"
	"github.com/sells-group/cellar-cli/internal/source"
)

const (
	// DefaultSpacing is the pause between one source invocation ending and
	// the next starting.
	DefaultSpacing = time.Second
	// DefaultSourceTimeout bounds a single source invocation.
	DefaultSourceTimeout = 15 * time.Second
)

// Orchestrator runs the cascade. It is safe for concurrent use; each Resolve
// call paces its own source invocations.
type Orchestrator struct {
	sources []source.Source
	rules   *rules.Engine
	cache   cache.Cache
	spacing time.Duration
	timeout time.Duration
	budget  time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCache sets the result cache. The default is an in-memory cache.
func WithCache(c cache.Cache) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.cache = c
		}
	}
}

// WithRules sets the fallback engine.
func WithRules(e *rules.Engine) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.rules = e
		}
	}
}

// WithSpacing sets the pause between source invocations. Zero disables
// pacing.
func WithSpacing(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.spacing = d
		}
	}
}

// WithSourceTimeout bounds each source invocation.
func WithSourceTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithBudget bounds the time spent on sources in one Resolve call. Once it is
// spent the remaining sources are skipped and the answer is not cached. Zero
// means no budget.
func WithBudget(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.budget = d
		}
	}
}

// New creates an Orchestrator over sources, which are consulted in tier order
// and, within a tier, in the order given.
func New(sources []source.Source, opts ...Option) *Orchestrator {
	sorted := slices.Clone(sources)
	slices.SortStableFunc(sorted, func(a, b source.Source) int {
		return cmp.Compare(a.Tier(), b.Tier())
	})
	o := &Orchestrator{
		sources: sorted,
		spacing: DefaultSpacing,
		timeout: DefaultSourceTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rules == nil {
		o.rules = rules.New()
	}
	if o.cache == nil {
		o.cache = cache.NewMemory(cache.DefaultShards)
	}
	return o
}

// Sources returns the sources in consultation order.
func (o *Orchestrator) Sources() []source.Source {
	return slices.Clone(o.sources)
}

// Resolve returns the drinking window for q. Source failures never surface;
// the only error is a malformed window reaching the peak calculation.
func (o *Orchestrator) Resolve(ctx context.Context, q model.WineQuery) (model.CascadeResult, error) {
	key := cache.QueryKey(q)
	log := zap.L().With(zap.String("wine", q.Name), zap.Int("vintage", q.Vintage))

	if r, ok, err := o.cache.Get(ctx, key); err != nil {
		log.Warn("cascade: cache get failed", zap.Error(err))
	} else if ok {
		log.Debug("cascade: cache hit", zap.String("key", key))
		return r, nil
	}

	est, ok, complete := o.consult(ctx, q, log)
	if !ok {
		est = o.rules.Evaluate(q)
	}

	peak, err := model.PeakYear(est.Window)
	if err != nil {
		return model.CascadeResult{}, eris.Wrapf(err, "cascade: %s from %s", q.Name, est.Source)
	}
	result := model.CascadeResult{WindowEstimate: est, PeakYear: peak}

	// An interrupted walk would shadow source data on later calls.
	if complete {
		if err := o.cache.Put(context.WithoutCancel(ctx), key, result); err != nil {
			log.Warn("cascade: cache put failed", zap.Error(err))
		}
	}
	log.Info("cascade: resolved",
		zap.String("source", result.Source),
		zap.String("confidence", string(result.Confidence)),
		zap.Stringer("window", result.Window),
		zap.Int("peak_year", result.PeakYear),
		zap.Bool("cached", complete),
	)
	return result, nil
}

// consult walks the sources and returns the adopted estimate, if any.
// complete is false when the budget or the caller's context ended the walk
// before every source had its turn.
func (o *Orchestrator) consult(ctx context.Context, q model.WineQuery, log *zap.Logger) (est model.WindowEstimate, found, complete bool) {
	if len(o.sources) == 0 {
		return model.WindowEstimate{}, false, true
	}
	if o.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.budget)
		defer cancel()
	}

	for i, s := range o.sources {
		if err := o.pause(ctx, i); err != nil {
			log.Info("cascade: budget exhausted, skipping remaining sources",
				zap.Int("skipped", len(o.sources)-i),
				zap.Error(err),
			)
			return est, found, false
		}

		got, ok := o.lookup(ctx, s, q)
		if !ok {
			continue
		}
		if got.Confidence == model.ConfidenceHigh {
			return got, true, true
		}
		if !found || got.Confidence.Rank() > est.Confidence.Rank() {
			est, found = got, true
		}
	}
	// A source cut short by the budget reports no-data, not a real miss.
	return est, found, ctx.Err() == nil
}

// pause waits out the spacing before the i-th source. The gap runs from the
// end of one invocation to the start of the next.
func (o *Orchestrator) pause(ctx context.Context, i int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if i == 0 || o.spacing <= 0 {
		return nil
	}
	t := time.NewTimer(o.spacing)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) lookup(ctx context.Context, s source.Source, q model.WineQuery) (model.WindowEstimate, bool) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	est, ok := s.Lookup(ctx, q)
	zap.L().Debug("cascade: source consulted",
		zap.String("source", s.Name()),
		zap.Stringer("tier", s.Tier()),
		zap.Bool("found", ok),
		zap.Duration("elapsed", time.Since(start)),
	)
	if ok && !est.Confidence.Valid() {
		est.Confidence = model.ConfidenceLow
	}
	return est, ok
}
