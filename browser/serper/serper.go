// Package serper implements browser.Searcher over the Serper Google
// search API (https://serper.dev).
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nevindra/trawl/browser"
)

const defaultBaseURL = "https://google.serper.dev/search"

// Searcher queries Serper.
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

// New creates a Serper searcher.
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

type request struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
	GL  string `json:"gl,omitempty"`
	HL  string `json:"hl,omitempty"`
}

type response struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search runs q and returns the organic results.
func (s *Searcher) Search(ctx context.Context, q browser.SearchQuery) ([]browser.SearchResult, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("serper: %w", browser.ErrMissingAPIKey)
	}

	body, err := json.Marshal(request{Q: q.Query, Num: q.TopN, GL: q.Country, HL: q.Language})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper search error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("serper API %d: %s", resp.StatusCode, string(msg))
	}

	var data response
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("serper parse error: %w", err)
	}

	results := make([]browser.SearchResult, 0, len(data.Organic))
	for i, r := range data.Organic {
		if q.TopN > 0 && i >= q.TopN {
			break
		}
		results = append(results, browser.SearchResult{Title: r.Title, URL: r.Link, Description: r.Snippet})
	}
	return results, nil
}

var _ browser.Searcher = (*Searcher)(nil)
