package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nevindra/trawl"
)

func TestProvider_ChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if !req.Stream || req.StreamOptions == nil || !req.StreamOptions.IncludeUsage {
			t.Errorf("stream flags not set: %+v", req)
		}
		if req.Model != "gpt-4o" {
			t.Errorf("expected model gpt-4o, got %s", req.Model)
		}
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != "search" {
			t.Errorf("tools = %+v", req.Tools)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(buildSSE(
			`{"choices":[{"index":0,"delta":{"content":"Hel"}}]}`,
			`{"choices":[{"index":0,"delta":{"content":"lo"}}]}`,
			"[DONE]",
		)))
	}))
	defer srv.Close()

	p := NewProvider("test-key", "gpt-4o", srv.URL+"/")
	stream, err := p.ChatStream(context.Background(), trawl.ChatRequest{
		Messages: []trawl.ChatMessage{trawl.UserMessage("Hi")},
		Tools:    []trawl.ToolDefinition{{Name: "search", Description: "web"}},
	})
	if err != nil {
		t.Fatalf("ChatStream returned error: %v", err)
	}
	comp, err := trawl.Accumulate(context.Background(), stream, nil)
	if err != nil {
		t.Fatal(err)
	}
	if comp.Message.Content != "Hello" {
		t.Errorf("content = %q, want Hello", comp.Message.Content)
	}
}

func TestProvider_ChatStream_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	p := NewProvider("k", "m", srv.URL)
	_, err := p.ChatStream(context.Background(), trawl.ChatRequest{})

	var httpErr *trawl.ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *trawl.ErrHTTP", err)
	}
	if httpErr.Status != 429 {
		t.Errorf("Status = %d, want 429", httpErr.Status)
	}
	if httpErr.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", httpErr.RetryAfter)
	}
	if httpErr.Body != `{"error":"rate limited"}` {
		t.Errorf("Body = %q", httpErr.Body)
	}
}

func TestProvider_NoAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("expected no Authorization header, got %q", auth)
		}
		w.Write([]byte(buildSSE("[DONE]")))
	}))
	defer srv.Close()

	p := NewProvider("", "local", srv.URL)
	stream, err := p.ChatStream(context.Background(), trawl.ChatRequest{})
	if err != nil {
		t.Fatal(err)
	}
	stream.Close()
}

func TestProvider_GenerationParamsOverrideOptions(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(buildSSE("[DONE]")))
	}))
	defer srv.Close()

	p := NewProvider("k", "m", srv.URL, WithOptions(WithTemperature(0.9), WithMaxTokens(100)))
	temp := 0.1
	stream, err := p.ChatStream(context.Background(), trawl.ChatRequest{
		GenerationParams: &trawl.GenerationParams{Temperature: &temp},
	})
	if err != nil {
		t.Fatal(err)
	}
	stream.Close()

	if got.Temperature == nil || *got.Temperature != 0.1 {
		t.Errorf("Temperature = %v, want 0.1", got.Temperature)
	}
	if got.MaxTokens != 100 {
		t.Errorf("MaxTokens = %d, want 100", got.MaxTokens)
	}
}

func TestProvider_Name(t *testing.T) {
	if n := NewProvider("k", "m", "http://x").Name(); n != "openai" {
		t.Errorf("default Name = %q", n)
	}
	if n := NewProvider("k", "m", "http://x", WithName("vllm")).Name(); n != "vllm" {
		t.Errorf("Name = %q, want vllm", n)
	}
}
