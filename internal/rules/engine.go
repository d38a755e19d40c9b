package rules

import (
	"fmt"
	"time"

	"github.com/sells-group/cellar-cli/internal/model"
)

// DefaultMinVintage is the earliest vintage treated as plausible.
const DefaultMinVintage = 1800

// Engine evaluates an ordered rule list; the first matching rule wins.
type Engine struct {
	rules      []Rule
	minVintage int
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the built-in rule list. If no rule in it matches, the
// generic catch-all still applies.
func WithRules(rules []Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

// WithMinVintage overrides DefaultMinVintage.
func WithMinVintage(year int) Option {
	return func(e *Engine) {
		if year > 0 {
			e.minVintage = year
		}
	}
}

// WithNow fixes the clock used for the plausible-vintage upper bound.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine with DefaultRules unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		rules:      DefaultRules(),
		minVintage: DefaultMinVintage,
		now:        time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Rules returns the decision list in precedence order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate returns the estimate of the first matching rule. It never fails:
// when nothing matches, the generic rule applies.
func (e *Engine) Evaluate(q model.WineQuery) model.WindowEstimate {
	est, _ := e.Explain(q)
	return est
}

// Explain is Evaluate plus the name of the rule that fired.
func (e *Engine) Explain(q model.WineQuery) (model.WindowEstimate, string) {
	f := NewFacts(q)
	rule, label := e.match(f)
	// Offsets are added to a bounded year so absurd vintages cannot overflow.
	year := min(max(q.Vintage, 0), model.MaxVintageYear)
	est := rule.Apply(year, label)

	if lo, hi := e.minVintage, e.now().Year(); q.Vintage < lo || q.Vintage > hi {
		est.Confidence = model.ConfidenceLow
		est.Notes = fmt.Sprintf("%s; vintage %d outside plausible range %d-%d", est.Notes, q.Vintage, lo, hi)
	}
	return est, rule.Name
}

func (e *Engine) match(f Facts) (Rule, string) {
	for _, r := range e.rules {
		if r.Match == nil {
			continue
		}
		if label, ok := r.Match(f); ok {
			return r, label
		}
	}
	return genericRule, ""
}
