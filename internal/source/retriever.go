package source

import (
	"context"
	"strings"

	"github.com/sells-group/cellar-cli/internal/fetcher"
	"github.com/sells-group/cellar-cli/internal/model"
	"github.com/sells-group/cellar-cli/pkg/jina"
	"github.com/sells-group/cellar-cli/pkg/perplexity"
)

// Request is what a Retriever needs to obtain text for one wine.
type Request struct {
	// Locator is the expanded template: a URL, a search query or a prompt.
	Locator string
	Site    string
	Query   model.WineQuery
}

// Retriever returns raw text for a request. Empty text with a nil error
// means the source has nothing for the wine.
type Retriever interface {
	Retrieve(ctx context.Context, req Request) (string, error)
}

// Retrievers maps each lookup kind to the capability serving it.
type Retrievers map[Kind]Retriever

// PageRetriever fetches the locator URL.
type PageRetriever struct {
	Fetcher fetcher.Fetcher
}

// Retrieve implements Retriever.
func (p PageRetriever) Retrieve(ctx context.Context, req Request) (string, error) {
	return p.Fetcher.Page(ctx, req.Locator)
}

// ReaderRetriever renders the locator URL through Jina Reader.
type ReaderRetriever struct {
	Client jina.Client
}

// Retrieve implements Retriever.
func (r ReaderRetriever) Retrieve(ctx context.Context, req Request) (string, error) {
	page, err := r.Client.Read(ctx, req.Locator)
	if err != nil {
		return "", err
	}
	return page.Content, nil
}

// SearchRetriever runs a site-restricted Jina search and joins the hits.
type SearchRetriever struct {
	Client jina.Client
	// MaxResults bounds how many hits are joined. Zero means 5.
	MaxResults int
}

// Retrieve implements Retriever.
func (s SearchRetriever) Retrieve(ctx context.Context, req Request) (string, error) {
	results, err := s.Client.Search(ctx, req.Locator, jina.WithSite(req.Site))
	if err != nil {
		return "", err
	}
	limit := s.MaxResults
	if limit <= 0 {
		limit = 5
	}
	if len(results) > limit {
		results = results[:limit]
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if t := r.Text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

const answerSystem = "You are a wine research assistant. Answer with the drinking window " +
	"published by professional critics or collectors. Never invent a window."

// AnswerRetriever asks Perplexity for the drinking window.
type AnswerRetriever struct {
	Client perplexity.Client
}

// Retrieve implements Retriever.
func (a AnswerRetriever) Retrieve(ctx context.Context, req Request) (string, error) {
	return a.Client.Ask(ctx, answerSystem, req.Locator)
}
