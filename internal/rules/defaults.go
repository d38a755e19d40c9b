package rules

import (
	"strings"

	"github.com/sells-group/cellar-cli/internal/model"
)

var (
	firstGrowths = terms("Lafite", "Latour", "Margaux", "Mouton", "Haut-Brion")
	rightBank    = terms("Right Bank", "Saint-Émilion", "St-Émilion", "Pomerol", "Fronsac")
	leftBank     = terms("Left Bank", "Bordeaux", "Médoc", "Pauillac", "Saint-Julien", "St-Julien",
		"Saint-Estèphe", "St-Estèphe", "Pessac-Léognan", "Graves")
	chateau  = terms("Château")
	burgundy = terms("Burgundy", "Bourgogne", "Côte de Nuits", "Côte de Beaune", "Côte d'Or",
		"Gevrey-Chambertin", "Vosne-Romanée", "Chambolle-Musigny", "Nuits-Saint-Georges",
		"Pommard", "Volnay", "Meursault", "Puligny-Montrachet", "Chassagne-Montrachet", "Corton")
	nebbiolo  = terms("Barolo", "Barbaresco")
	brunello  = terms("Brunello")
	chianti   = terms("Chianti Classico")
	sparkling = terms("Champagne", "Sparkling", "Crémant", "Franciacorta", "Blanc de Blancs", "Blanc de Noirs")

	cabernet        = terms("Cabernet Sauvignon")
	chardonnay      = terms("Chardonnay")
	chablis         = terms("Chablis")
	pinotNoir       = terms("Pinot Noir")
	merlot          = terms("Merlot")
	syrah           = terms("Syrah", "Shiraz")
	sauvignonBlanc  = terms("Sauvignon Blanc")
	riesling        = terms("Riesling")
	usRegions       = terms("Napa", "Sonoma", "California", "Paso Robles", "Washington")
	redGrapeHints   = terms("Pinot Noir", "Gamay", "Rouge", "Red")
	whiteGrapeHints = terms("Chardonnay", "Aligoté", "White", "Blanc")
)

// inferColor returns the explicit color, else a hint from varietal and name.
func inferColor(f Facts) model.Color {
	if f.Color != model.ColorUnknown {
		return f.Color
	}
	if _, ok := find(redGrapeHints, f.Varietal, f.Name); ok {
		return model.ColorRed
	}
	if _, ok := find(whiteGrapeHints, f.Varietal, f.Name); ok {
		return model.ColorWhite
	}
	return model.ColorUnknown
}

func isFrenchOrUnset(f Facts) bool { return countryIs(f.Country, true, "france") }
func isItalianOrUnset(f Facts) bool { return countryIs(f.Country, true, "italy", "italia") }
func isUSA(f Facts) bool {
	if countryIs(f.Country, false, "usa", "us", "united states", "united states of america", "america") {
		return true
	}
	_, ok := find(usRegions, f.Region)
	return ok
}

// DefaultRules returns the built-in decision list, most specific first. The
// last rule always matches.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "first_growth",
			Match: func(f Facts) (string, bool) {
				return find(firstGrowths, f.Name)
			},
			MinYears: 8, MaxYears: 40, Confidence: model.ConfidenceMedium,
			Notes: "Bordeaux First Growth estimate ({match})",
		},
		{
			Name: "right_bank",
			Match: func(f Facts) (string, bool) {
				return find(rightBank, f.Name, f.Region)
			},
			MinYears: 3, MaxYears: 20, Confidence: model.ConfidenceMedium,
			Notes: "Right Bank Bordeaux estimate ({match})",
		},
		{
			Name: "left_bank",
			Match: func(f Facts) (string, bool) {
				if label, ok := find(leftBank, f.Name, f.Region); ok {
					return label, true
				}
				if strings.HasPrefix(f.Name, chateau[0].token) && isFrenchOrUnset(f) {
					return "Château", true
				}
				return "", false
			},
			MinYears: 5, MaxYears: 25, Confidence: model.ConfidenceMedium,
			Notes: "Left Bank Bordeaux estimate ({match})",
		},
		{
			Name: "burgundy_red",
			Match: func(f Facts) (string, bool) {
				if inferColor(f) != model.ColorRed {
					return "", false
				}
				return find(burgundy, f.Name, f.Region)
			},
			MinYears: 3, MaxYears: 15, Confidence: model.ConfidenceMedium,
			Notes: "Burgundy red wine estimate ({match})",
		},
		{
			Name: "burgundy_white",
			Match: func(f Facts) (string, bool) {
				if inferColor(f) == model.ColorRed {
					return "", false
				}
				return find(burgundy, f.Name, f.Region)
			},
			MinYears: 1, MaxYears: 8, Confidence: model.ConfidenceMedium,
			Notes: "Burgundy white wine estimate ({match})",
		},
		{
			Name: "barolo_barbaresco",
			Match: func(f Facts) (string, bool) {
				if !isItalianOrUnset(f) {
					return "", false
				}
				return find(nebbiolo, f.Name, f.Region)
			},
			MinYears: 5, MaxYears: 25, Confidence: model.ConfidenceMedium,
			Notes: "Nebbiolo-based wine estimate ({match})",
		},
		{
			Name: "brunello",
			Match: func(f Facts) (string, bool) {
				if !isItalianOrUnset(f) {
					return "", false
				}
				return find(brunello, f.Name, f.Region)
			},
			MinYears: 4, MaxYears: 20, Confidence: model.ConfidenceMedium,
			Notes: "Brunello di Montalcino estimate",
		},
		{
			Name: "chianti_classico",
			Match: func(f Facts) (string, bool) {
				if !isItalianOrUnset(f) {
					return "", false
				}
				return find(chianti, f.Name, f.Region)
			},
			MinYears: 2, MaxYears: 12, Confidence: model.ConfidenceMedium,
			Notes: "Chianti Classico estimate",
		},
		{
			Name: "vintage_sparkling",
			Match: func(f Facts) (string, bool) {
				return find(sparkling, f.Name, f.Region, f.Varietal)
			},
			MinYears: 3, MaxYears: 15, Confidence: model.ConfidenceMedium,
			Notes: "Vintage Champagne/sparkling estimate ({match})",
		},
		{
			Name: "cabernet_usa",
			Match: func(f Facts) (string, bool) {
				if !isUSA(f) {
					return "", false
				}
				return find(cabernet, f.Varietal, f.Name)
			},
			MinYears: 3, MaxYears: 15, Confidence: model.ConfidenceMedium,
			Notes: "US Cabernet Sauvignon estimate",
		},
		{
			Name: "cabernet",
			Match: func(f Facts) (string, bool) {
				return find(cabernet, f.Varietal, f.Name)
			},
			MinYears: 4, MaxYears: 18, Confidence: model.ConfidenceMedium,
			Notes: "Cabernet Sauvignon general estimate",
		},
		{
			Name: "chardonnay_chablis",
			Match: func(f Facts) (string, bool) {
				if _, ok := find(chablis, f.Name, f.Region); !ok {
					return "", false
				}
				if f.Varietal == "" {
					return "Chablis", true
				}
				return find(chardonnay, f.Varietal)
			},
			MinYears: 1, MaxYears: 8, Confidence: model.ConfidenceMedium,
			Notes: "Chablis Chardonnay estimate",
		},
		{
			Name: "chardonnay",
			Match: func(f Facts) (string, bool) {
				return find(chardonnay, f.Varietal, f.Name)
			},
			MinYears: 1, MaxYears: 6, Confidence: model.ConfidenceMedium,
			Notes: "Chardonnay general estimate",
		},
		{
			Name: "pinot_noir",
			Match: func(f Facts) (string, bool) {
				return find(pinotNoir, f.Varietal, f.Name)
			},
			MinYears: 2, MaxYears: 10, Confidence: model.ConfidenceMedium,
			Notes: "Pinot Noir estimate",
		},
		{
			Name: "merlot",
			Match: func(f Facts) (string, bool) {
				return find(merlot, f.Varietal, f.Name)
			},
			MinYears: 2, MaxYears: 12, Confidence: model.ConfidenceMedium,
			Notes: "Merlot estimate",
		},
		{
			Name: "syrah",
			Match: func(f Facts) (string, bool) {
				return find(syrah, f.Varietal, f.Name)
			},
			MinYears: 3, MaxYears: 15, Confidence: model.ConfidenceMedium,
			Notes: "Syrah/Shiraz estimate ({match})",
		},
		{
			Name: "sauvignon_blanc",
			Match: func(f Facts) (string, bool) {
				return find(sauvignonBlanc, f.Varietal, f.Name)
			},
			MinYears: 0, MaxYears: 4, Confidence: model.ConfidenceMedium,
			Notes: "Sauvignon Blanc estimate",
		},
		{
			Name: "riesling",
			Match: func(f Facts) (string, bool) {
				return find(riesling, f.Varietal, f.Name)
			},
			MinYears: 1, MaxYears: 12, Confidence: model.ConfidenceMedium,
			Notes: "Riesling estimate",
		},
		{
			Name: "red",
			Match: func(f Facts) (string, bool) {
				return "Red", f.Color == model.ColorRed
			},
			MinYears: 2, MaxYears: 12, Confidence: model.ConfidenceLow,
			Notes: "Generic red wine estimate",
		},
		{
			Name: "white",
			Match: func(f Facts) (string, bool) {
				return "White", f.Color == model.ColorWhite
			},
			MinYears: 0, MaxYears: 5, Confidence: model.ConfidenceLow,
			Notes: "Generic white wine estimate",
		},
		genericRule,
	}
}

// genericRule is the terminal catch-all.
var genericRule = Rule{
	Name:     "generic",
	Match:    func(Facts) (string, bool) { return "", true },
	MinYears: 1, MaxYears: 8, Confidence: model.ConfidenceLow,
	Notes: "Generic wine estimate",
}
