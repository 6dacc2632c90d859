// Package chrome implements browser.Scraper with a headless Chrome driven
// by chromedp, for pages that only render their content with JavaScript.
package chrome

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/nevindra/trawl/browser"
	"github.com/nevindra/trawl/browser/fetch"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; TrawlBot/1.0)"

// Scraper renders pages in a fresh headless browser per call.
type Scraper struct {
	timeout   time.Duration
	userAgent string
	execPath  string
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithTimeout bounds one page render (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) { s.timeout = d }
}

// WithUserAgent overrides the browser's User-Agent.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) { s.userAgent = ua }
}

// WithExecPath sets the Chrome binary; by default chromedp searches PATH.
func WithExecPath(path string) Option {
	return func(s *Scraper) { s.execPath = path }
}

// New creates a Scraper.
func New(opts ...Option) *Scraper {
	s := &Scraper{timeout: 30 * time.Second, userAgent: defaultUserAgent}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape loads pageURL, waits for the body and extracts the main article.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (browser.Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return browser.Page{}, fmt.Errorf("invalid URL: %q", pageURL)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	html, err := s.render(ctx, pageURL)
	if err != nil {
		return browser.Page{}, fmt.Errorf("render %s: %w", pageURL, err)
	}

	title, md := fetch.ExtractArticle([]byte(html), u)
	return browser.Page{
		Title:      title,
		Markdown:   md,
		HTML:       html,
		StatusCode: 200,
		Success:    strings.TrimSpace(md) != "",
	}, nil
}

func (s *Scraper) render(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(s.userAgent),
	)
	if s.execPath != "" {
		opts = append(opts, chromedp.ExecPath(s.execPath))
	}
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

var _ browser.Scraper = (*Scraper)(nil)
