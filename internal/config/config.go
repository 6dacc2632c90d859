package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	LLM        LLMConfig        `toml:"llm"`
	Loop       LoopConfig       `toml:"loop"`
	Browser    BrowserConfig    `toml:"browser"`
	Transcript TranscriptConfig `toml:"transcript"`
	Observer   ObserverConfig   `toml:"observer"`
	Log        LogConfig        `toml:"log"`
}

type LLMConfig struct {
	Provider      string   `toml:"provider"`
	BaseURL       string   `toml:"base_url"`
	Model         string   `toml:"model"`
	APIKey        string   `toml:"api_key"`
	Temperature   *float64 `toml:"temperature"`
	TopP          *float64 `toml:"top_p"`
	MaxTokens     *int     `toml:"max_tokens"`
	RetryAttempts int      `toml:"retry_attempts"`
}

type LoopConfig struct {
	MaxIter      int    `toml:"max_iter"`
	SystemPrompt string `toml:"system_prompt"`
}

type BrowserConfig struct {
	SearchProvider  string `toml:"search_provider"` // brave | serper
	BraveAPIKey     string `toml:"brave_api_key"`
	SerperAPIKey    string `toml:"serper_api_key"`
	Scraper         string `toml:"scraper"` // fetch | firecrawl | chrome
	FirecrawlURL    string `toml:"firecrawl_url"`
	FirecrawlAPIKey string `toml:"firecrawl_api_key"`
	ViewWords       int    `toml:"view_words"`
	WrapWidth       int    `toml:"wrap_width"`
	TopN            int    `toml:"top_n"`
	Country         string `toml:"country"`
	Language        string `toml:"language"`
	FetchTimeoutSec int    `toml:"fetch_timeout_sec"`
}

type TranscriptConfig struct {
	Driver string `toml:"driver"` // "" (memory only) | sqlite | postgres
	Path   string `toml:"path"`
	DSN    string `toml:"dsn"`
}

type ObserverConfig struct {
	Enabled     bool                       `toml:"enabled"`
	ServiceName string                     `toml:"service_name"`
	Pricing     map[string]ObserverPricing `toml:"pricing"`
}

type ObserverPricing struct {
	Input  float64 `toml:"input"`
	Output float64 `toml:"output"`
}

type LogConfig struct {
	Level string `toml:"level"` // debug | info | warn | error
}

const DefaultSystemPrompt = `You are a research assistant with a text web browser.
Use search to find sources, open to read them, and find to locate text in a page.
Cite what you use with 【cursor†Lstart-Lend】, where cursor is the number in
brackets at the top of a page and the L numbers are its line numbers.`

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		LLM:  LLMConfig{Provider: "openai", Model: "gpt-4o-mini", RetryAttempts: 3},
		Loop: LoopConfig{MaxIter: 25, SystemPrompt: DefaultSystemPrompt},
		Browser: BrowserConfig{
			SearchProvider:  "brave",
			Scraper:         "fetch",
			ViewWords:       1024,
			WrapWidth:       80,
			TopN:            10,
			FetchTimeoutSec: 15,
		},
		Transcript: TranscriptConfig{Path: "trawl.db"},
		Log:        LogConfig{Level: "info"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
// A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("TRAWL_CONFIG")
	}
	if path == "" {
		path = "trawl.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	// Env overrides
	setString(&cfg.LLM.Provider, "TRAWL_LLM_PROVIDER")
	setString(&cfg.LLM.BaseURL, "TRAWL_LLM_BASE_URL")
	setString(&cfg.LLM.Model, "TRAWL_LLM_MODEL")
	setString(&cfg.LLM.APIKey, "TRAWL_LLM_API_KEY")
	setInt(&cfg.Loop.MaxIter, "TRAWL_MAX_ITER")
	setString(&cfg.Browser.SearchProvider, "TRAWL_SEARCH_PROVIDER")
	setString(&cfg.Browser.BraveAPIKey, "TRAWL_BRAVE_API_KEY")
	setString(&cfg.Browser.SerperAPIKey, "TRAWL_SERPER_API_KEY")
	setString(&cfg.Browser.Scraper, "TRAWL_SCRAPER")
	setString(&cfg.Browser.FirecrawlURL, "TRAWL_FIRECRAWL_URL")
	setString(&cfg.Browser.FirecrawlAPIKey, "TRAWL_FIRECRAWL_API_KEY")
	setString(&cfg.Transcript.Driver, "TRAWL_TRANSCRIPT_DRIVER")
	setString(&cfg.Transcript.Path, "TRAWL_TRANSCRIPT_PATH")
	setString(&cfg.Transcript.DSN, "TRAWL_TRANSCRIPT_DSN")
	setString(&cfg.Log.Level, "TRAWL_LOG_LEVEL")
	if v := os.Getenv("TRAWL_OBSERVER_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.Enabled = true
	}

	// Fallbacks
	if cfg.Browser.BraveAPIKey == "" {
		cfg.Browser.BraveAPIKey = os.Getenv("BRAVE_API_KEY")
	}
	if cfg.Browser.SerperAPIKey == "" {
		cfg.Browser.SerperAPIKey = os.Getenv("SERPER_API_KEY")
	}
	if cfg.LLM.APIKey == "" && strings.EqualFold(cfg.LLM.Provider, "openai") {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		*dst = v
	}
}
