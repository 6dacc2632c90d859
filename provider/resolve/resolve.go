// Package resolve builds a streaming trawl.Provider from a provider name and
// a few common settings, filling in base URLs for known hosts.
package resolve

import (
	"fmt"
	"log/slog"

	"github.com/nevindra/trawl"
	"github.com/nevindra/trawl/provider/openaicompat"
)

// Config holds provider-agnostic settings for creating a Provider.
type Config struct {
	Provider string // "openai", "openrouter", "groq", "deepseek", "together", "mistral", "ollama", "vllm", "llamacpp", "custom"
	APIKey   string
	Model    string
	BaseURL  string // required for "custom"; auto-filled for known providers

	// Common options (nil = use server default).
	Temperature *float64
	TopP        *float64
	MaxTokens   *int

	// RetryAttempts > 1 wraps the provider with trawl.WithRetry.
	RetryAttempts int
	Logger        *slog.Logger
}

// Provider creates a trawl.Provider from cfg.
func Provider(cfg Config) (trawl.Provider, error) {
	name := cfg.Provider
	if name == "" {
		name = "openai"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL(name)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("resolve: unknown provider %q and no base_url given", name)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("resolve: model is required")
	}

	provOpts := []openaicompat.ProviderOption{openaicompat.WithName(name)}
	if cfg.Logger != nil {
		provOpts = append(provOpts, openaicompat.WithLogger(cfg.Logger))
	}
	var reqOpts []openaicompat.Option
	if cfg.Temperature != nil {
		reqOpts = append(reqOpts, openaicompat.WithTemperature(*cfg.Temperature))
	}
	if cfg.TopP != nil {
		reqOpts = append(reqOpts, openaicompat.WithTopP(*cfg.TopP))
	}
	if cfg.MaxTokens != nil {
		reqOpts = append(reqOpts, openaicompat.WithMaxTokens(*cfg.MaxTokens))
	}
	if len(reqOpts) > 0 {
		provOpts = append(provOpts, openaicompat.WithOptions(reqOpts...))
	}

	var p trawl.Provider = openaicompat.NewProvider(cfg.APIKey, cfg.Model, baseURL, provOpts...)
	if cfg.RetryAttempts > 1 {
		retryOpts := []trawl.RetryOption{trawl.RetryMaxAttempts(cfg.RetryAttempts)}
		if cfg.Logger != nil {
			retryOpts = append(retryOpts, trawl.RetryLogger(cfg.Logger))
		}
		p = trawl.WithRetry(p, retryOpts...)
	}
	return p, nil
}

func defaultBaseURL(provider string) string {
	switch provider {
	case "openai":
		return "https://api.openai.com/v1"
	case "openrouter":
		return "https://openrouter.ai/api/v1"
	case "groq":
		return "https://api.groq.com/openai/v1"
	case "deepseek":
		return "https://api.deepseek.com/v1"
	case "together":
		return "https://api.together.xyz/v1"
	case "mistral":
		return "https://api.mistral.ai/v1"
	case "ollama":
		return "http://localhost:11434/v1"
	case "vllm":
		return "http://localhost:8000/v1"
	case "llamacpp":
		return "http://localhost:8080/v1"
	default:
		return ""
	}
}
