package trawl

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
)

// --- Stream mocks ---

// sliceStream replays a fixed list of deltas, then returns err (io.EOF when nil).
type sliceStream struct {
	deltas []Delta
	err    error
	pos    int
	closed bool
}

func (s *sliceStream) Recv() (Delta, error) {
	if s.pos < len(s.deltas) {
		d := s.deltas[s.pos]
		s.pos++
		return d, nil
	}
	if s.err != nil {
		return Delta{}, s.err
	}
	return Delta{}, io.EOF
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

// textTurn is a stream that answers with plain text split into pieces.
func textTurn(pieces ...string) *sliceStream {
	s := &sliceStream{}
	for _, p := range pieces {
		s.deltas = append(s.deltas, Delta{Content: p})
	}
	s.deltas = append(s.deltas, Delta{FinishReason: "stop"})
	return s
}

// callTurn is a stream that requests one tool call, streaming args in pieces.
func callTurn(id, name string, argPieces ...string) *sliceStream {
	s := &sliceStream{}
	s.deltas = append(s.deltas, Delta{ToolCall: &ToolCallDelta{ID: id, Name: name}})
	for _, p := range argPieces {
		s.deltas = append(s.deltas, Delta{ToolCall: &ToolCallDelta{Arguments: p}})
	}
	s.deltas = append(s.deltas, Delta{FinishReason: "tool_calls"})
	return s
}

// --- Provider mocks ---

// mockProvider hands out one prepared stream per ChatStream call and records
// every request it receives.
type mockProvider struct {
	name    string
	streams []*sliceStream
	openErr []error

	mu       sync.Mutex
	calls    int
	requests []ChatRequest
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) ChatStream(_ context.Context, req ChatRequest) (DeltaStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	snapshot := make([]ChatMessage, len(req.Messages))
	copy(snapshot, req.Messages)
	req.Messages = snapshot
	m.requests = append(m.requests, req)

	if i < len(m.openErr) && m.openErr[i] != nil {
		return nil, m.openErr[i]
	}
	if i >= len(m.streams) {
		return nil, errors.New("mockProvider: no more streams")
	}
	return m.streams[i], nil
}

// loopingProvider requests the same tool forever.
type loopingProvider struct{ calls int }

func (p *loopingProvider) Name() string { return "looping" }

func (p *loopingProvider) ChatStream(_ context.Context, _ ChatRequest) (DeltaStream, error) {
	p.calls++
	return callTurn("", "echo", `{}`), nil
}

// --- Tool mocks ---

type weatherTool struct {
	calls []string
}

func (w *weatherTool) Definitions() []ToolDefinition {
	return []ToolDefinition{{
		Name:        "get_current_weather",
		Description: "Get the current weather for a location",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"location":{"type":"string"}},"required":["location"]}`),
	}}
}

func (w *weatherTool) Execute(_ context.Context, _ string, args json.RawMessage) (ToolResult, error) {
	w.calls = append(w.calls, string(args))
	var p struct {
		Location string `json:"location"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return ToolResult{Error: "invalid args: " + err.Error()}, nil
	}
	return ToolResult{Content: "Weather in " + p.Location + ": 14C, light rain"}, nil
}

type echoTool struct{}

func (echoTool) Definitions() []ToolDefinition {
	return []ToolDefinition{{Name: "echo", Description: "Echo arguments"}}
}

func (echoTool) Execute(_ context.Context, _ string, args json.RawMessage) (ToolResult, error) {
	return ToolResult{Content: string(args)}, nil
}

type errTool struct{}

func (errTool) Definitions() []ToolDefinition {
	return []ToolDefinition{{Name: "fail", Description: "Always fails"}}
}

func (errTool) Execute(_ context.Context, _ string, _ json.RawMessage) (ToolResult, error) {
	return ToolResult{}, errors.New("tool broken")
}

type multiTool struct{}

func (multiTool) Definitions() []ToolDefinition {
	return []ToolDefinition{
		{Name: "tool_a", Description: "A"},
		{Name: "tool_b", Description: "B"},
	}
}

func (multiTool) Execute(_ context.Context, name string, _ json.RawMessage) (ToolResult, error) {
	return ToolResult{Content: "from " + name}, nil
}

// recordingState is a TurnState that records its lifecycle.
type recordingState struct {
	resets    int
	finalized []string
	suffix    string
}

func (r *recordingState) Reset() { r.resets++ }

func (r *recordingState) Finalize(text string) string {
	r.finalized = append(r.finalized, text)
	return text + r.suffix
}

// memTranscript is an in-memory TranscriptStore.
type memTranscript struct {
	mu      sync.Mutex
	byID    map[string][]ChatMessage
	failErr error
}

func newMemTranscript() *memTranscript {
	return &memTranscript{byID: make(map[string][]ChatMessage)}
}

func (m *memTranscript) Init(context.Context) error { return nil }

func (m *memTranscript) AppendMessages(_ context.Context, id string, msgs []ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.byID[id] = append(m.byID[id], msgs...)
	return nil
}

func (m *memTranscript) LoadMessages(_ context.Context, id string) ([]ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatMessage, len(m.byID[id]))
	copy(out, m.byID[id])
	return out, nil
}

func (m *memTranscript) Close() error { return nil }
