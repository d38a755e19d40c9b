package extract

import (
	"regexp"
	"strconv"

	"github.com/sells-group/cellar-cli/internal/model"
)

// Pattern is one named textual shape that can yield a drinking window.
type Pattern struct {
	Name string
	// Derived marks patterns that infer a range from a single year or a
	// duration hint; adapters cap the confidence of derived windows.
	Derived bool

	re      *regexp.Regexp
	convert func(groups []string, vintage int) model.Window
}

const (
	yearRange = `(\d{4})\s*(?:[-–—]|to)\s*(\d{4})`
	sep       = `[:\s]+`
)

func rangePattern(name, phrase string) Pattern {
	return Pattern{
		Name:    name,
		re:      regexp.MustCompile(`(?i)\b` + phrase + sep + yearRange),
		convert: func(g []string, _ int) model.Window { return model.Window{Start: atoi(g[1]), End: atoi(g[2])} },
	}
}

func yearPattern(name, phrase string, convert func(year, vintage int) model.Window) Pattern {
	return Pattern{
		Name:    name,
		Derived: true,
		re:      regexp.MustCompile(`(?i)\b` + phrase + sep + `(\d{4})\b`),
		convert: func(g []string, vintage int) model.Window { return convert(atoi(g[1]), vintage) },
	}
}

func durationPattern(name, phrase string, convert func(years, vintage int) model.Window) Pattern {
	return Pattern{
		Name:    name,
		Derived: true,
		re:      regexp.MustCompile(`(?i)\b` + phrase + sep + `(\d{1,2})\s*(?:more\s+)?years?\b`),
		convert: func(g []string, vintage int) model.Window { return convert(atoi(g[1]), vintage) },
	}
}

// library holds every known pattern keyed by name.
var library = map[string]Pattern{}

// DefaultOrder is the pattern order used when a source names none.
var DefaultOrder = []string{
	"drinking_window",
	"ready_to_drink",
	"drink",
	"best_consumed",
	"best_from",
	"best",
	"ready",
	"mature",
	"anticipated_maturity",
	"cellar_range",
	"cellar_until",
	"drink_from",
	"cellar_for",
	"ready_in",
	"cellaring_potential",
}

func init() {
	for _, p := range []Pattern{
		rangePattern("drinking_window", `drinking window`),
		rangePattern("drink", `drink`),
		rangePattern("best_consumed", `best consumed`),
		rangePattern("best_from", `best from`),
		rangePattern("best", `best`),
		rangePattern("ready_to_drink", `ready to drink`),
		rangePattern("ready", `ready`),
		rangePattern("mature", `mature`),
		rangePattern("anticipated_maturity", `anticipated maturity`),
		rangePattern("cellar_range", `cellar`),

		// "Cellar until 2035": ten years back from the end, never before the
		// year after vintage.
		yearPattern("cellar_until", `cellar until`, func(y, v int) model.Window {
			return model.Window{Start: max(v+1, y-10), End: y}
		}),
		yearPattern("drink_from", `drink from`, func(y, _ int) model.Window {
			return model.Window{Start: y, End: y + 8}
		}),

		durationPattern("cellar_for", `cellar for`, criticDuration),
		durationPattern("ready_in", `ready in`, criticDuration),
		durationPattern("cellaring_potential", `cellaring potential`, func(n, v int) model.Window {
			return model.Window{Start: v + 2, End: v + n}
		}),
	} {
		library[p.Name] = p
	}
}

// criticDuration turns "cellar for N years" into a window opening a couple of
// years before N and running eight years past it.
func criticDuration(n, vintage int) model.Window {
	return model.Window{Start: vintage + max(1, n-2), End: vintage + n + 8}
}

// Lookup returns the named pattern.
func Lookup(name string) (Pattern, bool) {
	p, ok := library[name]
	return p, ok
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
