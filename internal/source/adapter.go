package source

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cellar-cli/internal/extract"
	"github.com/sells-group/cellar-cli/internal/model"
	"github.com/sells-group/cellar-cli/internal/resilience"
)

// Adapter is the Source implementation shared by every definition.
type Adapter struct {
	def       Definition
	retriever Retriever
	extractor *extract.Extractor
	breaker   *resilience.Breaker

	bounds *extract.Bounds
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBreakers guards the adapter with the breaker registered for its name.
func WithBreakers(b *resilience.Breakers) Option {
	return func(a *Adapter) {
		if b != nil {
			a.breaker = b.For(a.def.Name)
		}
	}
}

// WithBounds overrides the extraction bounds.
func WithBounds(b extract.Bounds) Option {
	return func(a *Adapter) { a.bounds = &b }
}

// NewAdapter builds an adapter for def that obtains text from r.
func NewAdapter(def Definition, r Retriever, opts ...Option) (*Adapter, error) {
	def = def.withDefaults()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, eris.Errorf("source: %s: no retriever for %s lookup", def.Name, def.Lookup)
	}

	a := &Adapter{def: def, retriever: r}
	for _, o := range opts {
		o(a)
	}

	var xopts []extract.Option
	if a.bounds != nil {
		xopts = append(xopts, extract.WithBounds(*a.bounds))
	}
	x, err := extract.New(def.Patterns, xopts...)
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s", def.Name)
	}
	a.extractor = x
	return a, nil
}

// Name returns the stable source id.
func (a *Adapter) Name() string { return a.def.Name }

// Label returns the attribution label.
func (a *Adapter) Label() string { return a.def.Label }

// Tier returns the priority bucket.
func (a *Adapter) Tier() Tier { return a.def.Tier }

// Lookup retrieves text for q and extracts a window from it.
func (a *Adapter) Lookup(ctx context.Context, q model.WineQuery) (model.WindowEstimate, bool) {
	log := zap.L().With(zap.String("source", a.def.Name), zap.String("wine", q.Name), zap.Int("vintage", q.Vintage))

	req := Request{Locator: Expand(a.def.Locator, q), Site: a.def.Site, Query: q}
	text, err := a.retrieve(ctx, req)
	if err != nil {
		log.Debug("source: lookup failed", zap.Error(err))
		return model.WindowEstimate{}, false
	}
	if strings.TrimSpace(text) == "" {
		log.Debug("source: no content")
		return model.WindowEstimate{}, false
	}

	m, ok := a.extractor.Extract(text, q.Vintage)
	if !ok {
		log.Debug("source: no drinking window in content")
		return model.WindowEstimate{}, false
	}

	est := model.WindowEstimate{
		Window:     m.Window,
		Confidence: a.def.Confidence,
		Source:     a.def.Label,
		Notes:      a.def.Notes,
	}
	if m.Derived && !a.def.KeepDerivedConfidence {
		est.Confidence = est.Confidence.Cap(model.ConfidenceMedium)
		est.Notes = joinNotes(est.Notes, "estimated range from "+strings.ReplaceAll(m.Pattern, "_", " ")+" hint")
	}
	log.Debug("source: window found",
		zap.Stringer("window", est.Window),
		zap.String("pattern", m.Pattern),
		zap.String("confidence", string(est.Confidence)),
	)
	return est, true
}

func (a *Adapter) retrieve(ctx context.Context, req Request) (string, error) {
	if a.breaker == nil {
		return a.retriever.Retrieve(ctx, req)
	}
	return resilience.Call(ctx, a.breaker, func(ctx context.Context) (string, error) {
		return a.retriever.Retrieve(ctx, req)
	})
}

func joinNotes(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}

// Build creates adapters for defs in order. Definitions whose lookup kind has
// no retriever are skipped and logged.
func Build(defs []Definition, rs Retrievers, opts ...Option) ([]Source, error) {
	out := make([]Source, 0, len(defs))
	for _, d := range defs {
		r, ok := rs[d.Lookup]
		if !ok || r == nil {
			zap.L().Info("source: skipped, lookup not configured",
				zap.String("source", d.Name),
				zap.String("lookup", string(d.Lookup)),
			)
			continue
		}
		a, err := NewAdapter(d, r, opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
