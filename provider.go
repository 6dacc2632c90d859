package trawl

import "context"

// Provider abstracts the streaming chat-completions backend.
type Provider interface {
	// ChatStream opens a streaming completion for req. The returned stream
	// must be closed by the caller; Accumulate does this.
	ChatStream(ctx context.Context, req ChatRequest) (DeltaStream, error)
	// Name returns the provider name (e.g. "openai", "vllm").
	Name() string
}
