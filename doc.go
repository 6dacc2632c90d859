// Package trawl is a streaming tool-calling chat loop for Go.
//
// A [Loop] sends a conversation to a [Provider], assembles the streamed
// fragments into one message with [Accumulate], runs the tool the model asked
// for through a [ToolRegistry], folds the result back into the conversation
// and repeats until the model answers without calling a tool.
//
// # Quick Start
//
//	provider := trawl.WithRetry(openaicompat.NewProvider(apiKey, model, baseURL))
//
//	b := browser.New(brave.New(braveKey), fetch.New())
//	reg := trawl.NewToolRegistry()
//	for _, t := range b.Tools() {
//		reg.Add(t)
//	}
//
//	loop := trawl.NewLoop(provider, reg)
//	sess := trawl.NewSession("default", loop, trawl.WithTurnState(b))
//
//	res, err := sess.Turn(ctx, "What changed in Go 1.25?", nil)
//
// # Core Interfaces
//
//   - [Provider] — streaming chat completion backend
//   - [DeltaStream] — the fragments of one model turn
//   - [Tool] — a capability the model can call
//   - [TurnState] — tool state that is reset at every turn boundary
//   - [TranscriptStore] — persistence for committed history
//   - [Tracer] — optional spans around loop iterations
//
// # Included Implementations
//
// Providers: provider/openaicompat (OpenAI-compatible APIs).
// Browser: browser (search, open, find over a per-session document store),
// with search backends browser/brave and browser/serper and page backends
// browser/fetch, browser/firecrawl and browser/chrome.
// Storage: store/sqlite (local), store/postgres.
// Observability: observer (OpenTelemetry).
//
// See cmd/trawl for a complete command-line application.
package trawl
