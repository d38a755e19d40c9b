// Package extract pulls drinking-window year ranges out of noisy source text.
package extract

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/cellar-cli/internal/model"
)

// Bounds limits how far an extracted year may sit from the vintage.
type Bounds struct {
	YearsBefore int
	YearsAfter  int
}

// DefaultBounds accepts years from five before vintage to eighty after.
var DefaultBounds = Bounds{YearsBefore: 5, YearsAfter: 80}

// Match is a validated extraction.
type Match struct {
	Pattern string
	Window  model.Window
	Derived bool
}

// Extractor applies an ordered pattern list; the first pattern that matches
// decides the outcome.
type Extractor struct {
	patterns []Pattern
	bounds   Bounds
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithBounds overrides DefaultBounds.
func WithBounds(b Bounds) Option {
	return func(e *Extractor) {
		if b.YearsBefore >= 0 {
			e.bounds.YearsBefore = b.YearsBefore
		}
		if b.YearsAfter > 0 {
			e.bounds.YearsAfter = b.YearsAfter
		}
	}
}

// New builds an Extractor from pattern names in priority order. An empty list
// uses DefaultOrder.
func New(names []string, opts ...Option) (*Extractor, error) {
	if len(names) == 0 {
		names = DefaultOrder
	}
	e := &Extractor{bounds: DefaultBounds}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		p, ok := Lookup(n)
		if !ok {
			return nil, eris.Errorf("extract: unknown pattern %q", n)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		e.patterns = append(e.patterns, p)
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Patterns returns the names in evaluation order.
func (e *Extractor) Patterns() []string {
	out := make([]string, len(e.patterns))
	for i, p := range e.patterns {
		out[i] = p.Name
	}
	return out
}

// Extract finds the first pattern that matches text and converts it using
// vintage. A match that fails validation is reported as no match; later
// patterns are not consulted.
func (e *Extractor) Extract(text string, vintage int) (Match, bool) {
	if text == "" {
		return Match{}, false
	}
	for _, p := range e.patterns {
		groups := p.re.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		w := p.convert(groups, vintage)
		if !e.valid(w, vintage) {
			return Match{}, false
		}
		return Match{Pattern: p.Name, Window: w, Derived: p.Derived}, true
	}
	return Match{}, false
}

func (e *Extractor) valid(w model.Window, vintage int) bool {
	if !w.Valid() {
		return false
	}
	lo, hi := vintage-e.bounds.YearsBefore, vintage+e.bounds.YearsAfter
	return w.Start >= lo && w.Start <= hi && w.End >= lo && w.End <= hi
}
