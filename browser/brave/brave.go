// Package brave implements browser.Searcher over the Brave Search API.
package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nevindra/trawl/browser"
)

const defaultBaseURL = "https://api.search.brave.com/res/v1/web/search"

// Searcher queries Brave web search.
type Searcher struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithBaseURL overrides the search endpoint.
func WithBaseURL(u string) Option {
	return func(s *Searcher) { s.baseURL = u }
}

// WithHTTPClient sets the HTTP client (default: 10s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(s *Searcher) { s.client = c }
}

// New creates a Brave searcher.
func New(apiKey string, opts ...Option) *Searcher {
	s := &Searcher{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs q and returns the organic web results.
func (s *Searcher) Search(ctx context.Context, q browser.SearchQuery) ([]browser.SearchResult, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("brave: %w", browser.ErrMissingAPIKey)
	}

	params := url.Values{}
	params.Set("q", q.Query)
	if q.TopN > 0 {
		params.Set("count", strconv.Itoa(min(q.TopN, 20)))
	}
	if q.Country != "" {
		params.Set("country", q.Country)
	}
	if q.Language != "" {
		params.Set("search_lang", q.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave search error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("brave API %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("brave parse error: %w", err)
	}

	results := make([]browser.SearchResult, 0, len(data.Web.Results))
	for _, r := range data.Web.Results {
		results = append(results, browser.SearchResult{
			Title:       r.Title,
			URL:         r.URL,
			Description: browser.HTMLToMarkdown(r.Description),
		})
	}
	return results, nil
}

var _ browser.Searcher = (*Searcher)(nil)
