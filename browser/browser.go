// Package browser gives a model a small text web browser: search the web,
// open pages or links, and find text in them. Every page the model sees is
// kept in a per-session Store so the final answer can cite it by cursor and
// line range.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nevindra/trawl"
)

const (
	defaultViewWords = 1024
	defaultWrapWidth = 80
	defaultTopN      = 10
)

// Browser owns the document store of one session and exposes the search,
// open and find tools over it. Use one Browser per session.
type Browser struct {
	searcher Searcher
	scraper  Scraper
	store    *Store

	viewWords int
	wrapWidth int
	topN      int
	country   string
	language  string
	logger    *slog.Logger
}

// Option configures a Browser.
type Option func(*Browser)

// WithViewWords sets the word budget of one rendered window (default 1024).
func WithViewWords(n int) Option {
	return func(b *Browser) { b.viewWords = n }
}

// WithWrapWidth sets the column at which page text is wrapped (default 80).
func WithWrapWidth(n int) Option {
	return func(b *Browser) { b.wrapWidth = n }
}

// WithTopN sets the default number of search results (default 10).
func WithTopN(n int) Option {
	return func(b *Browser) { b.topN = n }
}

// WithRegion passes country and language hints to the search backend.
func WithRegion(country, language string) Option {
	return func(b *Browser) {
		b.country = country
		b.language = language
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Browser) { b.logger = l }
}

// New creates a Browser. Either backend may be nil, in which case the tools
// that need it report that it is not configured. Non-positive sizes fall
// back to their defaults.
func New(searcher Searcher, scraper Scraper, opts ...Option) *Browser {
	b := &Browser{
		searcher:  searcher,
		scraper:   scraper,
		store:     NewStore(),
		viewWords: defaultViewWords,
		wrapWidth: defaultWrapWidth,
		topN:      defaultTopN,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.viewWords <= 0 {
		b.viewWords = defaultViewWords
	}
	if b.wrapWidth <= 0 {
		b.wrapWidth = defaultWrapWidth
	}
	if b.topN <= 0 {
		b.topN = defaultTopN
	}
	if b.logger == nil {
		b.logger = slog.New(slog.DiscardHandler)
	}
	return b
}

// Store returns the browser's document store.
func (b *Browser) Store() *Store { return b.store }

// Tools returns the search, open and find tools bound to this browser.
func (b *Browser) Tools() []trawl.Tool {
	return []trawl.Tool{&searchTool{b: b}, &openTool{b: b}, &findTool{b: b}}
}

// Reset clears the document store. Sessions call it before every turn.
func (b *Browser) Reset() {
	b.store.Reset()
}

// Finalize resolves citation tokens in the final answer against the
// documents gathered during the turn.
func (b *Browser) Finalize(text string) string {
	if b.store.Len() == 0 {
		return text
	}
	out, cites := ResolveCitations(text, b.store, b.logger)
	if len(cites) > 0 {
		b.logger.Debug("citations resolved", "count", len(cites))
	}
	return out
}

// view stores doc and renders it.
func (b *Browser) view(doc Document) string {
	cursor := b.store.Add(doc)
	return Format(doc, cursor, b.viewWords)
}

// fetchDocument scrapes pageURL into a fresh Document. fallbackTitle is used
// when the page reports none.
func (b *Browser) fetchDocument(ctx context.Context, pageURL, fallbackTitle string) (Document, error) {
	if b.scraper == nil {
		return Document{}, fmt.Errorf("page fetching is not configured")
	}
	page, err := b.scraper.Scrape(ctx, pageURL)
	if err != nil {
		return Document{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if !page.Success || page.StatusCode >= 400 {
		return Document{}, fmt.Errorf("fetch %s: status %d", pageURL, page.StatusCode)
	}

	title := strings.TrimSpace(page.Title)
	if title == "" {
		title = fallbackTitle
	}
	if title == "" {
		title = pageURL
	}
	md := page.Markdown
	if strings.TrimSpace(md) == "" && page.HTML != "" {
		md = HTMLToMarkdown(page.HTML)
	}
	b.logger.Debug("page fetched", "url", pageURL, "status", page.StatusCode, "bytes", len(md))
	return NewDocument(title, pageURL, md, b.wrapWidth), nil
}

var _ trawl.TurnState = (*Browser)(nil)
