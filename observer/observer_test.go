package observer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/nevindra/trawl"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

type sliceStream struct {
	deltas []trawl.Delta
	err    error
	pos    int
	closed bool
}

func (s *sliceStream) Recv() (trawl.Delta, error) {
	if s.pos < len(s.deltas) {
		d := s.deltas[s.pos]
		s.pos++
		return d, nil
	}
	if s.err != nil {
		return trawl.Delta{}, s.err
	}
	return trawl.Delta{}, io.EOF
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

type mockProvider struct {
	name    string
	stream  *sliceStream
	openErr error
}

func (m *mockProvider) Name() string { return m.name }
func (m *mockProvider) ChatStream(_ context.Context, _ trawl.ChatRequest) (trawl.DeltaStream, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	return m.stream, nil
}

type mockTool struct {
	defs   []trawl.ToolDefinition
	result trawl.ToolResult
	err    error
}

func (m *mockTool) Definitions() []trawl.ToolDefinition { return m.defs }
func (m *mockTool) Execute(_ context.Context, _ string, _ json.RawMessage) (trawl.ToolResult, error) {
	return m.result, m.err
}

type mockTurner struct {
	res trawl.TurnResult
	err error
}

func (m *mockTurner) ID() string { return "s-1" }
func (m *mockTurner) Turn(context.Context, string, chan<- trawl.StreamEvent) (trawl.TurnResult, error) {
	return m.res, m.err
}

// testInstruments returns instruments on the no-op global meter and logger
// with a tracer that records finished spans.
func testInstruments(t *testing.T) (*Instruments, *tracetest.SpanRecorder) {
	t.Helper()
	inst, err := newInstruments(nil)
	if err != nil {
		t.Fatalf("newInstruments: %v", err)
	}
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	inst.Tracer = tp.Tracer("test")
	return inst, sr
}

func attrValue(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func drain(t *testing.T, s trawl.DeltaStream) []trawl.Delta {
	t.Helper()
	var out []trawl.Delta
	for {
		d, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		out = append(out, d)
	}
}

// ---------------------------------------------------------------------------
// ObservedProvider tests
// ---------------------------------------------------------------------------

func TestObservedProviderName(t *testing.T) {
	inst, _ := testInstruments(t)
	op := WrapProvider(&mockProvider{name: "test-provider"}, "test-model", inst)
	if got := op.Name(); got != "test-provider" {
		t.Errorf("Name() = %q, want %q", got, "test-provider")
	}
}

func TestObservedProviderStream(t *testing.T) {
	inst, sr := testInstruments(t)
	stream := &sliceStream{deltas: []trawl.Delta{
		{Content: "hello"},
		{Content: " world"},
		{FinishReason: "stop", Usage: &trawl.Usage{InputTokens: 8, OutputTokens: 2}},
	}}
	op := WrapProvider(&mockProvider{name: "p", stream: stream}, "gpt-4o-mini", inst)

	s, err := op.ChatStream(context.Background(), trawl.ChatRequest{
		Tools: []trawl.ToolDefinition{{Name: "search"}, {Name: "open"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := drain(t, s)
	if len(got) != 3 || got[0].Content != "hello" {
		t.Fatalf("deltas = %+v", got)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if !stream.closed {
		t.Error("inner stream not closed")
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "llm.chat_stream" {
		t.Errorf("span name = %q", span.Name())
	}
	if v, _ := attrValue(span, AttrStreamChunks); v.AsInt64() != 3 {
		t.Errorf("chunks = %d, want 3", v.AsInt64())
	}
	if v, _ := attrValue(span, AttrTokensInput); v.AsInt64() != 8 {
		t.Errorf("input tokens = %d, want 8", v.AsInt64())
	}
	if v, _ := attrValue(span, AttrToolCount); v.AsInt64() != 2 {
		t.Errorf("tool count = %d, want 2", v.AsInt64())
	}
	if v, _ := attrValue(span, AttrFinishReason); v.AsString() != "stop" {
		t.Errorf("finish reason = %q", v.AsString())
	}
	if span.Status().Code == codes.Error {
		t.Errorf("status = %+v, want ok", span.Status())
	}
}

func TestObservedProviderStreamError(t *testing.T) {
	inst, sr := testInstruments(t)
	wantErr := errors.New("connection reset")
	stream := &sliceStream{deltas: []trawl.Delta{{Content: "partial"}}, err: wantErr}
	op := WrapProvider(&mockProvider{name: "p", stream: stream}, "m", inst)

	s, err := op.ChatStream(context.Background(), trawl.ChatRequest{})
	if err != nil {
		t.Fatal(err)
	}
	s.Recv()
	if _, err := s.Recv(); !errors.Is(err, wantErr) {
		t.Fatalf("Recv error = %v, want %v", err, wantErr)
	}
	s.Close()

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want exactly 1", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status = %+v, want error", spans[0].Status())
	}
}

func TestObservedProviderOpenError(t *testing.T) {
	inst, sr := testInstruments(t)
	wantErr := errors.New("provider unavailable")
	op := WrapProvider(&mockProvider{name: "p", openErr: wantErr}, "m", inst)

	s, err := op.ChatStream(context.Background(), trawl.ChatRequest{})
	if !errors.Is(err, wantErr) || s != nil {
		t.Fatalf("ChatStream = %v, %v", s, err)
	}
	if spans := sr.Ended(); len(spans) != 1 || spans[0].Status().Code != codes.Error {
		t.Errorf("spans = %v", spans)
	}
}

func TestObservedProviderWithLoop(t *testing.T) {
	inst, sr := testInstruments(t)
	stream := &sliceStream{deltas: []trawl.Delta{{Content: "hi"}, {FinishReason: "stop"}}}
	op := WrapProvider(&mockProvider{name: "p", stream: stream}, "m", inst)

	res, err := trawl.NewLoop(op, nil).Run(context.Background(), []trawl.ChatMessage{trawl.UserMessage("hello")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Final.Content != "hi" {
		t.Errorf("final = %q", res.Final.Content)
	}
	var llmSpans int
	for _, s := range sr.Ended() {
		if s.Name() == "llm.chat_stream" {
			llmSpans++
		}
	}
	if llmSpans != 1 {
		t.Errorf("llm spans = %d, want 1", llmSpans)
	}
}

// ---------------------------------------------------------------------------
// ObservedTool tests
// ---------------------------------------------------------------------------

func TestObservedToolDefinitions(t *testing.T) {
	defs := []trawl.ToolDefinition{
		{Name: "search", Description: "web search"},
		{Name: "find", Description: "find in page"},
	}
	inst, _ := testInstruments(t)
	ot := WrapTool(&mockTool{defs: defs}, inst)

	got := ot.Definitions()
	if len(got) != len(defs) {
		t.Fatalf("Definitions length = %d, want %d", len(got), len(defs))
	}
	for i, d := range got {
		if d.Name != defs[i].Name {
			t.Errorf("Definitions[%d].Name = %q, want %q", i, d.Name, defs[i].Name)
		}
	}
}

func TestObservedToolExecute(t *testing.T) {
	inst, sr := testInstruments(t)
	ot := WrapTool(&mockTool{result: trawl.ToolResult{Content: "result data"}}, inst)

	got, err := ot.Execute(context.Background(), "search", json.RawMessage(`{"query":"test"}`))
	if err != nil {
		t.Fatalf("Execute returned unexpected error: %v", err)
	}
	if got.Content != "result data" || got.Error != "" {
		t.Errorf("result = %+v", got)
	}
	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d", len(spans))
	}
	if v, _ := attrValue(spans[0], AttrToolStatus); v.AsString() != "ok" {
		t.Errorf("status = %q", v.AsString())
	}
}

func TestObservedToolDomainError(t *testing.T) {
	inst, sr := testInstruments(t)
	ot := WrapTool(&mockTool{result: trawl.ToolResult{Error: "no results for \"x\""}}, inst)

	got, err := ot.Execute(context.Background(), "search", json.RawMessage(`{}`))
	if err != nil || got.Error == "" {
		t.Fatalf("Execute = %+v, %v", got, err)
	}
	if v, _ := attrValue(sr.Ended()[0], AttrToolStatus); v.AsString() != "tool_error" {
		t.Errorf("status = %q, want tool_error", v.AsString())
	}
}

func TestObservedToolRecordsBrowserView(t *testing.T) {
	inst, sr := testInstruments(t)
	view := "[2] Go\n(https://go.dev)\n**viewing lines [0 - 0] of 0**\n\nL0: hello\n"
	ot := WrapTool(&mockTool{result: trawl.ToolResult{Content: view}}, inst)

	if _, err := ot.Execute(context.Background(), "open", json.RawMessage(`{"id":"go.dev"}`)); err != nil {
		t.Fatal(err)
	}
	span := sr.Ended()[0]
	if v, _ := attrValue(span, AttrBrowserCursor); v.AsInt64() != 2 {
		t.Errorf("cursor = %d, want 2", v.AsInt64())
	}
	if v, _ := attrValue(span, AttrBrowserTitle); v.AsString() != "Go" {
		t.Errorf("title = %q, want Go", v.AsString())
	}
	if v, _ := attrValue(span, AttrToolArgsLength); v.AsInt64() != int64(len(`{"id":"go.dev"}`)) {
		t.Errorf("args length = %d", v.AsInt64())
	}
}

func TestViewHeader(t *testing.T) {
	tests := []struct {
		name   string
		result trawl.ToolResult
		cursor int
		title  string
		ok     bool
	}{
		{"content view", trawl.ToolResult{Content: "[0] Search results for \"go\"\nL0: x"}, 0, `Search results for "go"`, true},
		{"not-found view in error", trawl.ToolResult{Error: "[4] \"x\" not found in page \"Go\"\n"}, 4, `"x" not found in page "Go"`, true},
		{"plain error", trawl.ToolResult{Error: "no page is open"}, 0, "", false},
		{"empty", trawl.ToolResult{}, 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, title, ok := viewHeader(tt.result)
			if cursor != tt.cursor || title != tt.title || ok != tt.ok {
				t.Errorf("viewHeader = (%d, %q, %v), want (%d, %q, %v)", cursor, title, ok, tt.cursor, tt.title, tt.ok)
			}
		})
	}
}

func TestObservedToolExecuteError(t *testing.T) {
	wantErr := errors.New("tool broken")
	inst, _ := testInstruments(t)
	ot := WrapTool(&mockTool{err: wantErr}, inst)

	_, err := ot.Execute(context.Background(), "search", json.RawMessage(`{}`))
	if !errors.Is(err, wantErr) {
		t.Errorf("Execute error = %v, want %v", err, wantErr)
	}
}

// ---------------------------------------------------------------------------
// ObservedSession tests
// ---------------------------------------------------------------------------

func TestObservedSessionTurn(t *testing.T) {
	inst, sr := testInstruments(t)
	want := trawl.TurnResult{Answer: "done", Iterations: 2, Usage: trawl.Usage{InputTokens: 5, OutputTokens: 7}}
	obs := WrapSession(&mockTurner{res: want}, inst)

	got, err := obs.Turn(context.Background(), "q", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Answer != "done" || obs.ID() != "s-1" {
		t.Errorf("result = %+v id=%q", got, obs.ID())
	}
	span := sr.Ended()[0]
	if span.Name() != "session.turn" {
		t.Errorf("span = %q", span.Name())
	}
	if v, _ := attrValue(span, AttrTurnIterations); v.AsInt64() != 2 {
		t.Errorf("iterations = %d", v.AsInt64())
	}
	if v, _ := attrValue(span, AttrTurnStatus); v.AsString() != "ok" {
		t.Errorf("status = %q", v.AsString())
	}
}

func TestObservedSessionMaxIterations(t *testing.T) {
	inst, sr := testInstruments(t)
	obs := WrapSession(&mockTurner{err: &trawl.ErrMaxIterations{Limit: 3}}, inst)

	_, err := obs.Turn(context.Background(), "q", nil)
	var maxIter *trawl.ErrMaxIterations
	if !errors.As(err, &maxIter) {
		t.Fatalf("err = %v", err)
	}
	span := sr.Ended()[0]
	if v, _ := attrValue(span, AttrTurnStatus); v.AsString() != "max_iterations" {
		t.Errorf("status = %q", v.AsString())
	}
	if span.Status().Code != codes.Error {
		t.Errorf("span status = %+v", span.Status())
	}
}

func TestObservedSessionCancelled(t *testing.T) {
	inst, sr := testInstruments(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	obs := WrapSession(&mockTurner{err: context.Canceled}, inst)

	if _, err := obs.Turn(ctx, "q", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if v, _ := attrValue(sr.Ended()[0], AttrTurnStatus); v.AsString() != "cancelled" {
		t.Errorf("status = %q", v.AsString())
	}
}
