package rules

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cellar-cli/internal/model"
)

func testEngine() *Engine {
	return New(WithNow(func() time.Time {
		return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	}))
}

func TestEvaluate_ColorOnlyRed(t *testing.T) {
	est := testEngine().Evaluate(model.WineQuery{Vintage: 2018, Color: model.ColorRed})

	assert.Equal(t, model.Window{Start: 2020, End: 2030}, est.Window)
	assert.Equal(t, model.ConfidenceLow, est.Confidence)
	assert.Equal(t, Source, est.Source)
}

func TestEvaluate_FirstGrowthBeatsBank(t *testing.T) {
	est, rule := testEngine().Explain(model.WineQuery{
		Name:    "Château Latour",
		Vintage: 2010,
		Region:  "Left Bank",
		Color:   model.ColorRed,
	})

	assert.Equal(t, "first_growth", rule)
	assert.Equal(t, model.Window{Start: 2018, End: 2050}, est.Window)
	assert.Equal(t, model.ConfidenceMedium, est.Confidence)
	assert.Contains(t, est.Notes, "First Growth")
	assert.Contains(t, est.Notes, "Latour")
}

func TestEvaluate_Table(t *testing.T) {
	tests := []struct {
		name  string
		query model.WineQuery
		rule  string
		start int
		end   int
		conf  model.Confidence
	}{
		{"haut-brion without accent or hyphen",
			model.WineQuery{Name: "chateau haut brion", Vintage: 2015},
			"first_growth", 2023, 2055, model.ConfidenceMedium},
		{"right bank by region",
			model.WineQuery{Name: "Château Figeac", Vintage: 2016, Region: "Saint-Émilion"},
			"right_bank", 2019, 2036, model.ConfidenceMedium},
		{"right bank by name beats Château prefix",
			model.WineQuery{Name: "Château Clinet Pomerol", Vintage: 2016},
			"right_bank", 2019, 2036, model.ConfidenceMedium},
		{"left bank by region",
			model.WineQuery{Name: "Château Lynch-Bages", Vintage: 2016, Region: "Pauillac"},
			"left_bank", 2021, 2041, model.ConfidenceMedium},
		{"left bank by Château prefix",
			model.WineQuery{Name: "Château Montrose", Vintage: 2016, Country: "France"},
			"left_bank", 2021, 2041, model.ConfidenceMedium},
		{"Château prefix outside France is not Bordeaux",
			model.WineQuery{Name: "Chateau Montelena", Vintage: 2016, Country: "USA", Varietal: "Cabernet Sauvignon"},
			"cabernet_usa", 2019, 2031, model.ConfidenceMedium},
		{"burgundy red",
			model.WineQuery{Name: "Domaine de la Côte", Vintage: 2020, Region: "Burgundy", Color: model.ColorRed},
			"burgundy_red", 2023, 2035, model.ConfidenceMedium},
		{"burgundy red inferred from varietal",
			model.WineQuery{Name: "Gevrey-Chambertin Vieilles Vignes", Vintage: 2020, Varietal: "Pinot Noir"},
			"burgundy_red", 2023, 2035, model.ConfidenceMedium},
		{"burgundy white",
			model.WineQuery{Name: "Meursault Les Narvaux", Vintage: 2020, Color: model.ColorWhite},
			"burgundy_white", 2021, 2028, model.ConfidenceMedium},
		{"burgundy unknown color resolves white",
			model.WineQuery{Name: "Bourgogne", Vintage: 2020},
			"burgundy_white", 2021, 2028, model.ConfidenceMedium},
		{"barolo",
			model.WineQuery{Name: "Barolo Brunate", Vintage: 2018, Country: "Italy"},
			"barolo_barbaresco", 2023, 2043, model.ConfidenceMedium},
		{"barbaresco without country",
			model.WineQuery{Name: "Produttori del Barbaresco", Vintage: 2018},
			"barolo_barbaresco", 2023, 2043, model.ConfidenceMedium},
		{"brunello",
			model.WineQuery{Name: "Biondi-Santi Brunello di Montalcino", Vintage: 2016, Country: "Italy"},
			"brunello", 2020, 2036, model.ConfidenceMedium},
		{"chianti classico",
			model.WineQuery{Name: "Fèlsina Chianti Classico", Vintage: 2019},
			"chianti_classico", 2021, 2031, model.ConfidenceMedium},
		{"italian name with other country falls through",
			model.WineQuery{Name: "Barolo-style blend", Vintage: 2019, Country: "Australia", Color: model.ColorRed},
			"red", 2021, 2031, model.ConfidenceLow},
		{"champagne",
			model.WineQuery{Name: "Dom Perignon", Vintage: 2014, Region: "Champagne", Color: model.ColorWhite},
			"vintage_sparkling", 2017, 2029, model.ConfidenceMedium},
		{"us cabernet",
			model.WineQuery{Name: "Caymus", Vintage: 2021, Varietal: "Cabernet Sauvignon", Country: "USA"},
			"cabernet_usa", 2024, 2036, model.ConfidenceMedium},
		{"us cabernet by region",
			model.WineQuery{Name: "Caymus", Vintage: 2021, Varietal: "Cabernet Sauvignon", Region: "Napa Valley"},
			"cabernet_usa", 2024, 2036, model.ConfidenceMedium},
		{"cabernet by name",
			model.WineQuery{Name: "Penfolds Bin 407 Cabernet Sauvignon", Vintage: 2019, Country: "Australia"},
			"cabernet", 2023, 2037, model.ConfidenceMedium},
		{"chablis chardonnay",
			model.WineQuery{Name: "William Fèvre Chablis", Vintage: 2021, Varietal: "Chardonnay"},
			"chardonnay_chablis", 2022, 2029, model.ConfidenceMedium},
		{"chardonnay general",
			model.WineQuery{Name: "Kistler", Vintage: 2021, Varietal: "Chardonnay"},
			"chardonnay", 2022, 2027, model.ConfidenceMedium},
		{"pinot noir",
			model.WineQuery{Name: "Felton Road", Vintage: 2021, Varietal: "Pinot Noir", Country: "New Zealand"},
			"pinot_noir", 2023, 2031, model.ConfidenceMedium},
		{"merlot",
			model.WineQuery{Name: "Duckhorn", Vintage: 2020, Varietal: "Merlot"},
			"merlot", 2022, 2032, model.ConfidenceMedium},
		{"shiraz",
			model.WineQuery{Name: "Torbreck", Vintage: 2019, Varietal: "Shiraz"},
			"syrah", 2022, 2034, model.ConfidenceMedium},
		{"sauvignon blanc",
			model.WineQuery{Name: "Cloudy Bay", Vintage: 2023, Varietal: "Sauvignon Blanc"},
			"sauvignon_blanc", 2023, 2027, model.ConfidenceMedium},
		{"riesling",
			model.WineQuery{Name: "Dr. Loosen Riesling", Vintage: 2022, Region: "Mosel", Color: model.ColorWhite},
			"riesling", 2023, 2034, model.ConfidenceMedium},
		{"white",
			model.WineQuery{Name: "House White", Vintage: 2022, Color: model.ColorWhite},
			"white", 2022, 2027, model.ConfidenceLow},
		{"other color uses generic",
			model.WineQuery{Name: "Whispering Angel", Vintage: 2023, Color: model.ColorOther},
			"generic", 2024, 2031, model.ConfidenceLow},
		{"name and vintage only",
			model.WineQuery{Name: "Screaming Eagle", Vintage: 2019},
			"generic", 2020, 2027, model.ConfidenceLow},
	}
	e := testEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, rule := e.Explain(tt.query)
			assert.Equal(t, tt.rule, rule)
			assert.Equal(t, model.Window{Start: tt.start, End: tt.end}, est.Window)
			assert.Equal(t, tt.conf, est.Confidence)
			assert.Equal(t, Source, est.Source)
			assert.NotEmpty(t, est.Notes)
		})
	}
}

func TestEvaluate_ImplausibleVintage(t *testing.T) {
	e := testEngine()

	est := e.Evaluate(model.WineQuery{Name: "Château Latour", Vintage: 1066})
	assert.Equal(t, model.ConfidenceLow, est.Confidence)
	assert.Contains(t, est.Notes, "outside plausible range")
	assert.True(t, est.Window.Valid())

	est = e.Evaluate(model.WineQuery{Name: "Future Cuvée", Vintage: 2031})
	assert.Equal(t, model.ConfidenceLow, est.Confidence)
	assert.Contains(t, est.Notes, "vintage 2031")

	est = e.Evaluate(model.WineQuery{Name: "Current", Vintage: 2026, Color: model.ColorRed})
	assert.NotContains(t, est.Notes, "outside plausible range")
}

func TestEvaluate_ExtremeVintagesStayTotal(t *testing.T) {
	e := testEngine()

	for _, v := range []int{math.MaxInt, math.MaxInt - 10, math.MinInt, -1, 0} {
		est := e.Evaluate(model.WineQuery{Name: "Château Latour", Vintage: v})
		assert.True(t, est.Window.Valid(), "vintage %d gave %s", v, est.Window)
		assert.Equal(t, model.ConfidenceLow, est.Confidence, "vintage %d", v)
		assert.Contains(t, est.Notes, "outside plausible range")
	}

	est := e.Evaluate(model.WineQuery{Name: "Château Latour", Vintage: math.MaxInt})
	assert.Equal(t, model.Window{Start: 10007, End: 10039}, est.Window)
}

func TestRule_ApplyReversedOffsets(t *testing.T) {
	r := Rule{Name: "reversed", MinYears: 10, MaxYears: 2, Confidence: model.ConfidenceLow}
	est := r.Apply(2020, "")
	assert.Equal(t, model.Window{Start: 2022, End: 2030}, est.Window)
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := testEngine()
	q := model.WineQuery{Name: "Opus One", Vintage: 2018, Varietal: "Cabernet Sauvignon", Country: "USA"}
	assert.Equal(t, e.Evaluate(q), e.Evaluate(q))
}

func TestWithRules_FallsBackToGeneric(t *testing.T) {
	e := New(WithRules([]Rule{{
		Name:       "never",
		Match:      func(Facts) (string, bool) { return "", false },
		MinYears:   1,
		MaxYears:   2,
		Confidence: model.ConfidenceHigh,
	}}))

	est, rule := e.Explain(model.WineQuery{Name: "x", Vintage: 2020})
	assert.Equal(t, "generic", rule)
	assert.Equal(t, model.Window{Start: 2021, End: 2028}, est.Window)
}

func TestDefaultRules_Shape(t *testing.T) {
	rs := DefaultRules()
	require.NotEmpty(t, rs)

	last := rs[len(rs)-1]
	_, ok := last.Match(Facts{})
	assert.True(t, ok, "terminal rule must always match")

	seen := map[string]bool{}
	for _, r := range rs {
		assert.False(t, seen[r.Name], "duplicate rule %s", r.Name)
		seen[r.Name] = true
		assert.LessOrEqual(t, r.MinYears, r.MaxYears, r.Name)
		assert.True(t, r.Confidence.Valid(), r.Name)
	}
}
