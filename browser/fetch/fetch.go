// Package fetch implements browser.Scraper with a plain HTTP GET. HTML is
// reduced to the main article with readability, PDFs are converted to text.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"

	"github.com/nevindra/trawl/browser"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; TrawlBot/1.0)"
	defaultMaxBytes  = 1 << 20 // 1MB
)

// Scraper fetches pages over HTTP.
type Scraper struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithHTTPClient sets the HTTP client (default: 15s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) { s.client = c }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) { s.userAgent = ua }
}

// WithMaxBytes limits how much of a response body is read.
func WithMaxBytes(n int64) Option {
	return func(s *Scraper) { s.maxBytes = n }
}

// New creates a Scraper.
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client:    &http.Client{Timeout: 15 * time.Second},
		userAgent: defaultUserAgent,
		maxBytes:  defaultMaxBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape downloads rawURL. HTTP error statuses are reported in the Page,
// not as an error; transport failures are errors.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (browser.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return browser.Page{}, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return browser.Page{}, fmt.Errorf("fetch error: %w", err)
	}
	defer resp.Body.Close()

	page := browser.Page{StatusCode: resp.StatusCode}
	if resp.StatusCode >= 400 {
		return page, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes))
	if err != nil {
		return page, fmt.Errorf("read error: %w", err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/pdf" || bytes.HasPrefix(body, []byte("%PDF-")):
		text, err := pdfText(body)
		if err != nil {
			return page, nil
		}
		page.Markdown = text
	case mediaType == "" || strings.Contains(mediaType, "html"):
		page.Title, page.Markdown = ExtractArticle(body, resp.Request.URL)
		page.HTML = string(body)
	default:
		page.Markdown = string(body)
	}
	page.Success = true
	return page, nil
}

// ExtractArticle runs readability over an HTML body and returns the title
// and the article as markdown.
func ExtractArticle(body []byte, pageURL *url.URL) (title, markdown string) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", browser.HTMLToMarkdown(string(body))
	}
	title = strings.TrimSpace(article.Title)
	if article.Content != "" {
		markdown = browser.HTMLToMarkdown(article.Content)
	}
	if markdown == "" {
		markdown = strings.TrimSpace(article.TextContent)
	}
	return title, markdown
}

func pdfText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var text strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if pageText = strings.TrimSpace(pageText); pageText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(pageText)
	}
	return text.String(), nil
}

var _ browser.Scraper = (*Scraper)(nil)
