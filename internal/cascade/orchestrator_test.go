package cascade

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cellar-cli/internal/cache"
	"github.com/sells-group/cellar-cli/internal/model"
	"github.com/sells-group/cellar-cli/internal/rules"
	"github.com/sells-group/cellar-cli/internal/source"
)

type stubSource struct {
	name  string
	tier  source.Tier
	est   model.WindowEstimate
	ok    bool
	delay time.Duration
	calls atomic.Int32
}

func (s *stubSource) Name() string      { return s.name }
func (s *stubSource) Label() string     { return s.name }
func (s *stubSource) Tier() source.Tier { return s.tier }

func (s *stubSource) Lookup(ctx context.Context, _ model.WineQuery) (model.WindowEstimate, bool) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return model.WindowEstimate{}, false
		}
	}
	return s.est, s.ok
}

func hit(name string, tier source.Tier, start, end int, c model.Confidence) *stubSource {
	return &stubSource{
		name: name,
		tier: tier,
		ok:   true,
		est: model.WindowEstimate{
			Window:     model.Window{Start: start, End: end},
			Confidence: c,
			Source:     name,
		},
	}
}

func miss(name string, tier source.Tier) *stubSource {
	return &stubSource{name: name, tier: tier}
}

func testRules() *rules.Engine {
	return rules.New(rules.WithNow(func() time.Time {
		return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	}))
}

func newTest(sources []*stubSource, opts ...Option) *Orchestrator {
	ss := make([]source.Source, len(sources))
	for i, s := range sources {
		ss[i] = s
	}
	opts = append([]Option{WithSpacing(0), WithRules(testRules())}, opts...)
	return New(ss, opts...)
}

var margaux = model.WineQuery{Name: "Château Margaux", Vintage: 2015, Region: "Bordeaux", Country: "France"}

func TestResolve_HighStopsCascade(t *testing.T) {
	a := miss("a", source.Tier1)
	b := hit("b", source.Tier1, 2025, 2060, model.ConfidenceHigh)
	c := hit("c", source.Tier1, 2020, 2030, model.ConfidenceHigh)
	o := newTest([]*stubSource{a, b, c})

	r, err := o.Resolve(context.Background(), margaux)
	require.NoError(t, err)

	assert.Equal(t, "b", r.Source)
	assert.Equal(t, model.Window{Start: 2025, End: 2060}, r.Window)
	assert.Equal(t, model.ConfidenceHigh, r.Confidence)
	assert.Equal(t, 2036, r.PeakYear)
	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())
	assert.Equal(t, int32(0), c.calls.Load())
}

func TestResolve_TierOrder(t *testing.T) {
	t2 := hit("community", source.Tier2, 2020, 2030, model.ConfidenceHigh)
	t1 := hit("critic", source.Tier1, 2022, 2040, model.ConfidenceHigh)
	o := newTest([]*stubSource{t2, t1})

	r, err := o.Resolve(context.Background(), margaux)
	require.NoError(t, err)
	assert.Equal(t, "critic", r.Source)
	assert.Equal(t, int32(0), t2.calls.Load())

	names := []string{}
	for _, s := range o.Sources() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"critic", "community"}, names)
}

func TestResolve_BestCandidateKept(t *testing.T) {
	low := hit("low", source.Tier1, 2018, 2024, model.ConfidenceLow)
	med1 := hit("med1", source.Tier1, 2020, 2032, model.ConfidenceMedium)
	med2 := hit("med2", source.Tier2, 2021, 2035, model.ConfidenceMedium)
	o := newTest([]*stubSource{low, med1, med2})

	r, err := o.Resolve(context.Background(), margaux)
	require.NoError(t, err)

	assert.Equal(t, "med1", r.Source, "ties go to the earlier source")
	assert.Equal(t, model.ConfidenceMedium, r.Confidence)
	assert.Equal(t, 2024, r.PeakYear)
	assert.Equal(t, int32(1), med2.calls.Load(), "non-high results do not stop the cascade")
}

func TestResolve_FallsBackToRules(t *testing.T) {
	o := newTest([]*stubSource{miss("a", source.Tier1), miss("b", source.Tier2)})

	r, err := o.Resolve(context.Background(), margaux)
	require.NoError(t, err)

	want := testRules().Evaluate(margaux)
	assert.Equal(t, want, r.WindowEstimate)
	peak, err := model.PeakYear(want.Window)
	require.NoError(t, err)
	assert.Equal(t, peak, r.PeakYear)
}

func TestResolve_NoSources(t *testing.T) {
	o := newTest(nil)

	r, err := o.Resolve(context.Background(), model.WineQuery{Name: "House Blend", Vintage: 2020, Color: model.ColorRed})
	require.NoError(t, err)
	assert.Equal(t, model.Window{Start: 2022, End: 2032}, r.Window)
	assert.Equal(t, model.ConfidenceLow, r.Confidence)
	assert.Equal(t, 2025, r.PeakYear)
}

func TestResolve_CachedSecondCall(t *testing.T) {
	a := hit("a", source.Tier1, 2025, 2060, model.ConfidenceHigh)
	o := newTest([]*stubSource{a})

	first, err := o.Resolve(context.Background(), margaux)
	require.NoError(t, err)
	second, err := o.Resolve(context.Background(), margaux)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), a.calls.Load())
}

func TestResolve_CacheKeyIgnoresCase(t *testing.T) {
	a := hit("a", source.Tier1, 2025, 2060, model.ConfidenceHigh)
	o := newTest([]*stubSource{a})

	_, err := o.Resolve(context.Background(), margaux)
	require.NoError(t, err)
	_, err = o.Resolve(context.Background(), model.WineQuery{Name: "CHATEAU MARGAUX", Vintage: 2015})
	require.NoError(t, err)

	assert.Equal(t, int32(1), a.calls.Load())
}

func TestResolve_SharedCache(t *testing.T) {
	c := cache.NewMemory(4)
	a := hit("a", source.Tier1, 2025, 2060, model.ConfidenceHigh)
	b := hit("b", source.Tier1, 2020, 2030, model.ConfidenceHigh)

	_, err := newTest([]*stubSource{a}, WithCache(c)).Resolve(context.Background(), margaux)
	require.NoError(t, err)
	r, err := newTest([]*stubSource{b}, WithCache(c)).Resolve(context.Background(), margaux)
	require.NoError(t, err)

	assert.Equal(t, "a", r.Source)
	assert.Equal(t, int32(0), b.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestResolve_MalformedWindow(t *testing.T) {
	bad := hit("bad", source.Tier1, 2040, 2020, model.ConfidenceHigh)
	c := cache.NewMemory(1)
	o := newTest([]*stubSource{bad}, WithCache(c))

	_, err := o.Resolve(context.Background(), margaux)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrMalformedWindow)
	assert.Equal(t, 0, c.Len(), "malformed results are not cached")
}

func TestResolve_InvalidConfidenceTreatedAsLow(t *testing.T) {
	odd := hit("odd", source.Tier1, 2020, 2030, "certain")
	med := hit("med", source.Tier2, 2021, 2031, model.ConfidenceMedium)
	o := newTest([]*stubSource{odd, med})

	r, err := o.Resolve(context.Background(), margaux)
	require.NoError(t, err)
	assert.Equal(t, "med", r.Source)
}

func TestResolve_BudgetExhausted(t *testing.T) {
	slow := miss("slow", source.Tier1)
	slow.delay = time.Second
	next := hit("next", source.Tier1, 2025, 2060, model.ConfidenceHigh)
	o := newTest([]*stubSource{slow, next}, WithBudget(20*time.Millisecond))

	r, err := o.Resolve(context.Background(), margaux)
	require.NoError(t, err)

	assert.Equal(t, int32(0), next.calls.Load())
	assert.Equal(t, testRules().Evaluate(margaux), r.WindowEstimate)
}

func TestResolve_SourceTimeout(t *testing.T) {
	slow := hit("slow", source.Tier1, 2020, 2030, model.ConfidenceHigh)
	slow.delay = time.Second
	next := hit("next", source.Tier1, 2025, 2060, model.ConfidenceHigh)
	o := newTest([]*stubSource{slow, next}, WithSourceTimeout(10*time.Millisecond))

	r, err := o.Resolve(context.Background(), margaux)
	require.NoError(t, err)
	assert.Equal(t, "next", r.Source)
}

func TestResolve_BudgetExhaustedNotCached(t *testing.T) {
	slow := miss("slow", source.Tier1)
	slow.delay = time.Second
	next := hit("next", source.Tier1, 2025, 2060, model.ConfidenceHigh)
	c := cache.NewMemory(1)
	o := newTest([]*stubSource{slow, next}, WithCache(c), WithBudget(20*time.Millisecond))

	_, err := o.Resolve(context.Background(), margaux)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	slow.delay = 0
	r, err := o.Resolve(context.Background(), margaux)
	require.NoError(t, err)
	assert.Equal(t, "next", r.Source)
	assert.Equal(t, 1, c.Len())
}

func TestResolve_CancelledCallerStillAnswers(t *testing.T) {
	a := hit("a", source.Tier1, 2025, 2060, model.ConfidenceHigh)
	c := cache.NewMemory(1)
	o := newTest([]*stubSource{a}, WithCache(c))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := o.Resolve(ctx, margaux)
	require.NoError(t, err)

	assert.Equal(t, testRules().Evaluate(margaux), r.WindowEstimate)
	assert.Equal(t, int32(0), a.calls.Load())
	assert.Equal(t, 0, c.Len())

	r, err = o.Resolve(context.Background(), margaux)
	require.NoError(t, err)
	assert.Equal(t, "a", r.Source)
	assert.Equal(t, int32(1), a.calls.Load())
}

func TestResolve_ExtremeVintageStillAnswers(t *testing.T) {
	o := newTest(nil)

	r, err := o.Resolve(context.Background(), model.WineQuery{Name: "Château Latour", Vintage: math.MaxInt - 10})
	require.NoError(t, err)
	assert.True(t, r.Window.Valid())
	assert.Equal(t, model.ConfidenceLow, r.Confidence)
	assert.Equal(t, rules.Source, r.Source)
}

func TestResolve_Spacing(t *testing.T) {
	a := miss("a", source.Tier1)
	b := miss("b", source.Tier1)
	c := miss("c", source.Tier1)
	o := newTest([]*stubSource{a, b, c}, WithSpacing(30*time.Millisecond))

	start := time.Now()
	_, err := o.Resolve(context.Background(), margaux)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestResolve_SpacingFollowsSlowCall(t *testing.T) {
	a := miss("a", source.Tier1)
	a.delay = 40 * time.Millisecond
	b := miss("b", source.Tier1)
	o := newTest([]*stubSource{a, b}, WithSpacing(30*time.Millisecond))

	start := time.Now()
	_, err := o.Resolve(context.Background(), margaux)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

type brokenCache struct{ puts int }

func (b *brokenCache) Get(context.Context, string) (model.CascadeResult, bool, error) {
	return model.CascadeResult{}, false, errors.New("disk gone")
}

func (b *brokenCache) Put(context.Context, string, model.CascadeResult) error {
	b.puts++
	return errors.New("disk gone")
}

func TestResolve_CacheErrorsIgnored(t *testing.T) {
	bc := &brokenCache{}
	a := hit("a", source.Tier1, 2025, 2060, model.ConfidenceHigh)
	o := newTest([]*stubSource{a}, WithCache(bc))

	r, err := o.Resolve(context.Background(), margaux)
	require.NoError(t, err)
	assert.Equal(t, "a", r.Source)

	_, err = o.Resolve(context.Background(), margaux)
	require.NoError(t, err)
	assert.Equal(t, int32(2), a.calls.Load())
	assert.Equal(t, 2, bc.puts)
}
