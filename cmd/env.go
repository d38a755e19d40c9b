package main

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cellar-cli/internal/cache"
	"github.com/sells-group/cellar-cli/internal/cascade"
	"github.com/sells-group/cellar-cli/internal/config"
	"github.com/sells-group/cellar-cli/internal/extract"
	"github.com/sells-group/cellar-cli/internal/fetcher"
	"github.com/sells-group/cellar-cli/internal/resilience"
	"github.com/sells-group/cellar-cli/internal/rules"
	"github.com/sells-group/cellar-cli/internal/source"
	"github.com/sells-group/cellar-cli/pkg/jina"
	"github.com/sells-group/cellar-cli/pkg/perplexity"
)

// cascadeEnv holds the wired cascade and the resources it owns.
type cascadeEnv struct {
	Orchestrator *cascade.Orchestrator
	Breakers     *resilience.Breakers
	cacheCloser  io.Closer
}

// Close releases the durable cache, if any.
func (e *cascadeEnv) Close() {
	if e.cacheCloser == nil {
		return
	}
	if err := e.cacheCloser.Close(); err != nil {
		zap.L().Warn("close cache", zap.Error(err))
	}
}

// initCascade validates cfg for mode and wires sources, cache and rules.
func initCascade(ctx context.Context, mode string) (*cascadeEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	defs, err := source.LoadDefinitions(cfg.Cascade.SourcesFile)
	if err != nil {
		return nil, eris.Wrap(err, "load source definitions")
	}

	breakers := resilience.NewBreakers(resilience.NewBreakerSettings(cfg.Breaker.FailureThreshold, cfg.Breaker.ResetTimeoutSecs))
	srcs, err := source.Build(defs, buildRetrievers(cfg),
		source.WithBreakers(breakers),
		source.WithBounds(extractBounds(cfg.Extract)),
	)
	if err != nil {
		return nil, eris.Wrap(err, "build sources")
	}

	c, closer, err := cache.Open(ctx, cache.Options{
		Driver:   cfg.Cache.Driver,
		DSN:      cfg.Cache.DSN,
		Shards:   cfg.Cache.Shards,
		MaxConns: cfg.Cache.MaxConns,
		MinConns: cfg.Cache.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open cache")
	}

	orch := cascade.New(srcs,
		cascade.WithCache(c),
		cascade.WithRules(rules.New(rules.WithMinVintage(cfg.Rules.MinVintage))),
		cascade.WithSpacing(cfg.Cascade.Spacing()),
		cascade.WithSourceTimeout(cfg.Cascade.SourceTimeout()),
		cascade.WithBudget(cfg.Cascade.Budget()),
	)

	zap.L().Info("cascade ready",
		zap.Int("sources", len(srcs)),
		zap.String("cache", cfg.Cache.Driver),
	)
	return &cascadeEnv{Orchestrator: orch, Breakers: breakers, cacheCloser: closer}, nil
}

// buildRetrievers returns the lookup capabilities the configuration enables.
// Page and reader lookups need no credentials; search and answer lookups are
// enabled only when their API key is set.
func buildRetrievers(c *config.Config) source.Retrievers {
	rs := source.Retrievers{
		source.KindPage: source.PageRetriever{Fetcher: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:    c.HTTP.UserAgent,
			Timeout:      time.Duration(c.HTTP.TimeoutSecs) * time.Second,
			MaxRetries:   c.HTTP.MaxRetries,
			MaxBodyBytes: c.HTTP.MaxBodyBytes,
			RatePerHost:  c.HTTP.RatePerHost,
		})},
	}

	jinaOpts := []jina.Option{jina.WithBaseURL(c.Jina.BaseURL)}
	if c.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(c.Jina.SearchBaseURL))
	}
	jinaClient := jina.NewClient(c.Jina.Key, jinaOpts...)
	rs[source.KindReader] = source.ReaderRetriever{Client: jinaClient}
	if c.Jina.Key != "" {
		rs[source.KindSearch] = source.SearchRetriever{Client: jinaClient}
	} else {
		zap.L().Debug("CELLAR_JINA_KEY not set, search sources disabled")
	}

	if c.Perplexity.Key != "" {
		rs[source.KindAnswer] = source.AnswerRetriever{Client: perplexity.NewClient(c.Perplexity.Key,
			perplexity.WithBaseURL(c.Perplexity.BaseURL),
			perplexity.WithModel(c.Perplexity.Model),
		)}
	} else {
		zap.L().Debug("CELLAR_PERPLEXITY_KEY not set, answer sources disabled")
	}
	return rs
}

func extractBounds(c config.ExtractConfig) extract.Bounds {
	return extract.Bounds{YearsBefore: c.MaxYearsBeforeVintage, YearsAfter: c.MaxYearsAfterVintage}
}
