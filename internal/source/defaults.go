package source

import "github.com/sells-group/cellar-cli/internal/model"

// DefaultDefinitions returns the built-in sources in priority order.
func DefaultDefinitions() []Definition {
	defs := []Definition{
		{
			Name:    "cellartracker",
			Label:   "CellarTracker",
			Tier:    Tier1,
			Lookup:  KindPage,
			Locator: "https://www.cellartracker.com/list.asp?Table=List&iUserOverride=0&szSearch={query}",
			Patterns: []string{
				"drink", "drinking_window", "mature", "best", "cellar_until", "drink_from", "ready",
			},
			Notes: "Crowd-sourced collector data",
		},
		{
			Name:    "wine_searcher",
			Label:   "Wine-Searcher",
			Tier:    Tier1,
			Lookup:  KindPage,
			Locator: "https://www.wine-searcher.com/find/{query}",
			Patterns: []string{
				"drinking_window", "drink", "best_consumed", "cellar_until", "ready_to_drink",
			},
			Notes: "Professional aggregated data",
		},
		{
			Name:   "erobertparker",
			Label:  "Robert Parker Wine Advocate",
			Tier:   Tier1,
			Lookup: KindSearch,
			Site:   "erobertparker.com",
			Patterns: []string{
				"drink", "anticipated_maturity", "cellar_for", "ready_in", "best",
			},
			Notes:                 "Professional critic assessment",
			KeepDerivedConfidence: true,
		},
		{
			Name:   "vinous",
			Label:  "Vinous",
			Tier:   Tier1,
			Lookup: KindSearch,
			Site:   "vinous.com",
			Patterns: []string{
				"drinking_window", "drink", "best_from", "cellar_range", "ready",
			},
			Notes: "Professional wine critic review",
		},
		{
			Name:   "jancisrobinson",
			Label:  "Jancis Robinson",
			Tier:   Tier1,
			Lookup: KindSearch,
			Site:   "jancisrobinson.com",
			Patterns: []string{
				"drink", "drinking_window", "best", "mature", "cellar_until",
			},
			Notes: "Master of Wine assessment",
		},
		{
			Name:     "vivino",
			Label:    "Vivino",
			Tier:     Tier2,
			Lookup:   KindReader,
			Locator:  "https://www.vivino.com/search/wines?q={query}",
			Patterns: []string{"drink", "best", "drinking_window", "ready"},
			Notes:    "User community data",
		},
		{
			Name:    "wine_com",
			Label:   "Wine.com",
			Tier:    Tier2,
			Lookup:  KindPage,
			Locator: "https://www.wine.com/search/{query}",
			Patterns: []string{
				"drink", "drinking_window", "best_consumed", "cellaring_potential",
			},
			Notes: "Commercial wine data",
		},
		{
			Name:   "decanter",
			Label:  "Decanter",
			Tier:   Tier2,
			Lookup: KindSearch,
			Site:   "decanter.com",
			Patterns: []string{
				"drink", "drinking_window", "best", "cellar_until", "ready",
			},
			Notes: "Wine magazine professional review",
		},
		{
			Name:   "wine_spectator",
			Label:  "Wine Spectator",
			Tier:   Tier2,
			Lookup: KindSearch,
			Site:   "winespectator.com",
			Patterns: []string{
				"drink", "drinking_window", "best", "cellar_until", "ready",
			},
			Notes: "Professional wine magazine rating",
		},
	}
	for i := range defs {
		defs[i] = defs[i].withDefaults()
	}
	return defs
}

// PerplexityDefinition is an optional answer source that source files may
// enable.
func PerplexityDefinition() Definition {
	return Definition{
		Name:       "perplexity",
		Label:      "Perplexity",
		Tier:       Tier2,
		Confidence: model.ConfidenceMedium,
		Lookup:     KindAnswer,
		Patterns:   []string{"drink", "drinking_window"},
		Notes:      "Web-grounded answer citing critic reviews",
	}.withDefaults()
}
