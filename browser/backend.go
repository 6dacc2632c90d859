package browser

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned by backends constructed without credentials.
var ErrMissingAPIKey = errors.New("missing API key")

// SearchQuery is one web search request.
type SearchQuery struct {
	Query string
	TopN  int
	// Country and Language are optional region hints (e.g. "us", "en").
	Country  string
	Language string
}

// SearchResult is one organic search hit.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Searcher runs web searches. Implementations: brave, serper.
type Searcher interface {
	Search(ctx context.Context, q SearchQuery) ([]SearchResult, error)
}

// Page is a scraped web page.
type Page struct {
	Title      string
	Markdown   string
	HTML       string
	StatusCode int
	// Success is false when the backend reached the page but could not
	// render it.
	Success bool
}

// Scraper fetches a page by URL. Implementations: fetch, firecrawl, chrome.
type Scraper interface {
	Scrape(ctx context.Context, url string) (Page, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, q SearchQuery) ([]SearchResult, error)

func (f SearcherFunc) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	return f(ctx, q)
}

// ScraperFunc adapts a function to Scraper.
type ScraperFunc func(ctx context.Context, url string) (Page, error)

func (f ScraperFunc) Scrape(ctx context.Context, url string) (Page, error) {
	return f(ctx, url)
}
