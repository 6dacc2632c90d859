package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevindra/trawl"
	"github.com/nevindra/trawl/browser"
	"github.com/nevindra/trawl/browser/brave"
	"github.com/nevindra/trawl/browser/chrome"
	"github.com/nevindra/trawl/browser/fetch"
	"github.com/nevindra/trawl/browser/firecrawl"
	"github.com/nevindra/trawl/browser/serper"
	"github.com/nevindra/trawl/internal/config"
	"github.com/nevindra/trawl/observer"
	"github.com/nevindra/trawl/provider/resolve"
	"github.com/nevindra/trawl/store/postgres"
	"github.com/nevindra/trawl/store/sqlite"
)

type rootOptions struct {
	configPath string
	sessionID  string
}

// app is everything one CLI invocation needs to run turns.
type app struct {
	session observer.Turner
	logger  *slog.Logger
	closers []func(context.Context) error
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown", "error", err)
		}
	}
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Log.Level)
	a := &app{logger: logger}

	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		pricing := make(map[string]observer.ModelPricing, len(cfg.Observer.Pricing))
		for model, p := range cfg.Observer.Pricing {
			pricing[model] = observer.ModelPricing{InputPerMillion: p.Input, OutputPerMillion: p.Output}
		}
		i, shutdown, err := observer.Init(ctx, cfg.Observer.ServiceName, pricing)
		if err != nil {
			return nil, fmt.Errorf("init observer: %w", err)
		}
		inst = i
		a.closers = append(a.closers, shutdown)
	}

	provider, err := resolve.Provider(resolve.Config{
		Provider:      cfg.LLM.Provider,
		APIKey:        cfg.LLM.APIKey,
		Model:         cfg.LLM.Model,
		BaseURL:       cfg.LLM.BaseURL,
		Temperature:   cfg.LLM.Temperature,
		TopP:          cfg.LLM.TopP,
		MaxTokens:     cfg.LLM.MaxTokens,
		RetryAttempts: cfg.LLM.RetryAttempts,
		Logger:        logger,
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	if inst != nil {
		provider = observer.WrapProvider(provider, cfg.LLM.Model, inst)
	}

	searcher, err := newSearcher(cfg.Browser)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	scraper, err := newScraper(cfg.Browser)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	b := browser.New(searcher, scraper,
		browser.WithViewWords(cfg.Browser.ViewWords),
		browser.WithWrapWidth(cfg.Browser.WrapWidth),
		browser.WithTopN(cfg.Browser.TopN),
		browser.WithRegion(cfg.Browser.Country, cfg.Browser.Language),
		browser.WithLogger(logger.With("component", "browser")),
	)

	registry := trawl.NewToolRegistry()
	for _, t := range b.Tools() {
		if inst != nil {
			t = observer.WrapTool(t, inst)
		}
		if err := registry.Add(t); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	loopOpts := []trawl.LoopOption{
		trawl.WithMaxIter(cfg.Loop.MaxIter),
		trawl.WithLoopLogger(logger.With("component", "loop")),
	}
	if inst != nil {
		loopOpts = append(loopOpts, trawl.WithTracer(observer.NewTracer()))
	}
	loop := trawl.NewLoop(provider, registry, loopOpts...)

	sessOpts := []trawl.SessionOption{
		trawl.WithSystemPrompt(cfg.Loop.SystemPrompt),
		trawl.WithTurnState(b),
		trawl.WithSessionLogger(logger),
	}
	transcript, err := openTranscript(ctx, cfg.Transcript, logger)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	if transcript != nil {
		sessOpts = append(sessOpts, trawl.WithTranscript(transcript))
		a.closers = append(a.closers, func(context.Context) error { return transcript.Close() })
	}

	id := opts.sessionID
	if id == "" {
		id = trawl.NewID()
	}
	sess := trawl.NewSession(id, loop, sessOpts...)
	if err := sess.Load(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.session = sess
	if inst != nil {
		a.session = observer.WrapSession(sess, inst)
	}
	logger.Debug("session ready", "session", id, "history", len(sess.Messages()))
	return a, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func newSearcher(cfg config.BrowserConfig) (browser.Searcher, error) {
	switch strings.ToLower(cfg.SearchProvider) {
	case "", "brave":
		return brave.New(cfg.BraveAPIKey), nil
	case "serper":
		return serper.New(cfg.SerperAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.SearchProvider)
	}
}

func newScraper(cfg config.BrowserConfig) (browser.Scraper, error) {
	timeout := time.Duration(cfg.FetchTimeoutSec) * time.Second
	switch strings.ToLower(cfg.Scraper) {
	case "", "fetch":
		var opts []fetch.Option
		if timeout > 0 {
			opts = append(opts, fetch.WithHTTPClient(&http.Client{Timeout: timeout}))
		}
		return fetch.New(opts...), nil
	case "firecrawl":
		var opts []firecrawl.Option
		if cfg.FirecrawlURL != "" {
			opts = append(opts, firecrawl.WithBaseURL(cfg.FirecrawlURL))
		}
		return firecrawl.New(cfg.FirecrawlAPIKey, opts...), nil
	case "chrome":
		var opts []chrome.Option
		if timeout > 0 {
			opts = append(opts, chrome.WithTimeout(timeout))
		}
		return chrome.New(opts...), nil
	default:
		return nil, fmt.Errorf("unknown scraper %q", cfg.Scraper)
	}
}

func openTranscript(ctx context.Context, cfg config.TranscriptConfig, logger *slog.Logger) (trawl.TranscriptStore, error) {
	var store trawl.TranscriptStore
	switch strings.ToLower(cfg.Driver) {
	case "":
		return nil, nil
	case "sqlite":
		store = sqlite.New(cfg.Path, sqlite.WithLogger(logger))
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("transcript: postgres driver needs a dsn")
		}
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("transcript: %w", err)
		}
		store = &pooledStore{Store: postgres.New(pool, postgres.WithLogger(logger)), pool: pool}
	default:
		return nil, fmt.Errorf("unknown transcript driver %q", cfg.Driver)
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("transcript init: %w", err)
	}
	return store, nil
}

// pooledStore closes the pgx pool the CLI opened for the postgres store.
type pooledStore struct {
	*postgres.Store
	pool *pgxpool.Pool
}

func (s *pooledStore) Close() error {
	s.pool.Close()
	return nil
}
