// Package firecrawl implements browser.Scraper over the Firecrawl scrape
// API, which renders pages server-side and returns markdown.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nevindra/trawl/browser"
)

const defaultBaseURL = "https://api.firecrawl.dev"

// Scraper calls POST /v1/scrape.
type Scraper struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithBaseURL points the scraper at a self-hosted Firecrawl.
func WithBaseURL(u string) Option {
	return func(s *Scraper) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client (default: 60s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) { s.client = c }
}

// New creates a Firecrawl scraper. A self-hosted instance may not need a key.
func New(apiKey string, opts ...Option) *Scraper {
	s := &Scraper{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
		HTML     string `json:"html"`
		Metadata struct {
			Title      string `json:"title"`
			StatusCode int    `json:"statusCode"`
		} `json:"metadata"`
	} `json:"data"`
}

// Scrape renders pageURL through Firecrawl.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (browser.Page, error) {
	body, err := json.Marshal(scrapeRequest{
		URL:             pageURL,
		Formats:         []string{"markdown", "html"},
		OnlyMainContent: true,
	})
	if err != nil {
		return browser.Page{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return browser.Page{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return browser.Page{}, fmt.Errorf("firecrawl error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return browser.Page{}, fmt.Errorf("firecrawl: %w", browser.ErrMissingAPIKey)
	}

	var data scrapeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&data); err != nil {
		return browser.Page{}, fmt.Errorf("firecrawl parse error (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK && data.Error != "" {
		return browser.Page{}, fmt.Errorf("firecrawl API %d: %s", resp.StatusCode, data.Error)
	}

	status := data.Data.Metadata.StatusCode
	if status == 0 {
		status = resp.StatusCode
	}
	return browser.Page{
		Title:      data.Data.Metadata.Title,
		Markdown:   data.Data.Markdown,
		HTML:       data.Data.HTML,
		StatusCode: status,
		Success:    data.Success,
	}, nil
}

var _ browser.Scraper = (*Scraper)(nil)
