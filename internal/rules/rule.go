// Package rules estimates drinking windows from wine-region and varietal
// knowledge when no external source has usable data.
package rules

import (
	"strings"

	"github.com/sells-group/cellar-cli/internal/model"
	"github.com/sells-group/cellar-cli/internal/normalize"
)

// Source is the attribution label on every rule-derived estimate.
const Source = "Fallback Rules"

// Facts is the folded view of a WineQuery that matchers inspect.
type Facts struct {
	Name     string
	Region   string
	Varietal string
	Country  string
	Color    model.Color
	Vintage  int
}

// NewFacts folds the text fields of q.
func NewFacts(q model.WineQuery) Facts {
	return Facts{
		Name:     normalize.Fold(q.Name),
		Region:   normalize.Fold(q.Region),
		Varietal: normalize.Fold(q.Varietal),
		Country:  normalize.Fold(q.Country),
		Color:    q.Color,
		Vintage:  q.Vintage,
	}
}

// Matcher reports whether a rule applies and, if so, the label of what
// matched (used to fill the notes template).
type Matcher func(f Facts) (string, bool)

// Rule is one entry of the ordered decision list.
type Rule struct {
	Name       string
	Match      Matcher
	MinYears   int
	MaxYears   int
	Confidence model.Confidence
	// Notes may contain "{match}", replaced by the matcher's label.
	Notes string
}

// Apply builds the estimate for vintage. Offsets given in reverse order are
// swapped so the window is never inverted.
func (r Rule) Apply(vintage int, label string) model.WindowEstimate {
	lo, hi := min(r.MinYears, r.MaxYears), max(r.MinYears, r.MaxYears)
	return model.WindowEstimate{
		Window:     model.Window{Start: vintage + lo, End: vintage + hi},
		Confidence: r.Confidence,
		Source:     Source,
		Notes:      strings.ReplaceAll(r.Notes, "{match}", label),
	}
}

// term pairs a folded token with the label reported when it matches.
type term struct {
	token string
	label string
}

func terms(labels ...string) []term {
	out := make([]term, 0, len(labels))
	for _, l := range labels {
		out = append(out, term{token: normalize.Fold(l), label: l})
	}
	return out
}

// find returns the label of the first term contained in any of fields.
func find(ts []term, fields ...string) (string, bool) {
	for _, t := range ts {
		for _, f := range fields {
			if f != "" && strings.Contains(f, t.token) {
				return t.label, true
			}
		}
	}
	return "", false
}

// countryIs reports whether the folded country is empty or one of names.
func countryIs(country string, allowEmpty bool, names ...string) bool {
	if country == "" {
		return allowEmpty
	}
	for _, n := range names {
		if country == n {
			return true
		}
	}
	return false
}
