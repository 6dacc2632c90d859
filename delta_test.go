package trawl

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestAccumulateTextOnly(t *testing.T) {
	s := textTurn("Hel", "lo, ", "world")
	comp, err := Accumulate(context.Background(), s, nil)
	if err != nil {
		t.Fatal(err)
	}
	if comp.Message.Content != "Hello, world" {
		t.Errorf("Content = %q, want %q", comp.Message.Content, "Hello, world")
	}
	if len(comp.Message.ToolCalls) != 0 {
		t.Errorf("ToolCalls = %d, want 0", len(comp.Message.ToolCalls))
	}
	if comp.Message.Role != "assistant" {
		t.Errorf("Role = %q, want assistant", comp.Message.Role)
	}
	if comp.FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop", comp.FinishReason)
	}
	if !s.closed {
		t.Error("stream was not closed")
	}
}

func TestAccumulateEmptyStream(t *testing.T) {
	comp, err := Accumulate(context.Background(), &sliceStream{}, nil)
	if err != nil {
		t.Fatalf("empty stream returned error: %v", err)
	}
	if comp.Message.Content != "" || len(comp.Message.ToolCalls) != 0 {
		t.Errorf("expected empty message, got %+v", comp.Message)
	}
}

func TestAccumulateToolCallFragments(t *testing.T) {
	s := callTurn("call_1", "get_current_weather", `{"loc`, `ation":`, `"London,GB"}`)
	comp, err := Accumulate(context.Background(), s, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(comp.Message.ToolCalls) != 1 {
		t.Fatalf("ToolCalls = %d, want 1", len(comp.Message.ToolCalls))
	}
	tc := comp.Message.ToolCalls[0]
	if tc.ID != "call_1" || tc.Name != "get_current_weather" {
		t.Errorf("call = %+v", tc)
	}
	want := `{"location":"London,GB"}`
	if string(tc.Args) != want {
		t.Errorf("Args = %s, want %s", tc.Args, want)
	}
	if !json.Valid(tc.Args) {
		t.Error("accumulated args are not valid JSON")
	}
}

func TestAccumulateFirstCallWins(t *testing.T) {
	s := &sliceStream{deltas: []Delta{
		{ToolCall: &ToolCallDelta{Index: 0, ID: "a", Name: "search", Arguments: `{"query":`}},
		{ToolCall: &ToolCallDelta{Index: 1, ID: "b", Name: "search", Arguments: `{"query":"b"}`}},
		{ToolCall: &ToolCallDelta{Index: 0, Arguments: `"a"}`}},
		{ToolCall: &ToolCallDelta{Index: 1, Arguments: ``}},
	}}
	comp, err := Accumulate(context.Background(), s, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(comp.Message.ToolCalls) != 1 {
		t.Fatalf("ToolCalls = %d, want 1", len(comp.Message.ToolCalls))
	}
	tc := comp.Message.ToolCalls[0]
	if tc.ID != "a" || tc.Name != "search" {
		t.Errorf("call = %+v, want id a", tc)
	}
	if string(tc.Args) != `{"query":"a"}` {
		t.Errorf("Args = %s, want {\"query\":\"a\"}", tc.Args)
	}
	if !json.Valid(tc.Args) {
		t.Error("accumulated args are not valid JSON")
	}
}

func TestAccumulateDropsCallWithOtherID(t *testing.T) {
	s := &sliceStream{deltas: []Delta{
		{ToolCall: &ToolCallDelta{ID: "a", Name: "open", Arguments: `{"id":1}`}},
		{ToolCall: &ToolCallDelta{ID: "b", Name: "find", Arguments: `{"pattern":"x"}`}},
	}}
	comp, err := Accumulate(context.Background(), s, nil)
	if err != nil {
		t.Fatal(err)
	}
	tc := comp.Message.ToolCalls[0]
	if tc.Name != "open" || string(tc.Args) != `{"id":1}` {
		t.Errorf("call = %s(%s), want open({\"id\":1})", tc.Name, tc.Args)
	}
}

func TestAccumulateLateNameAndID(t *testing.T) {
	s := &sliceStream{deltas: []Delta{
		{ToolCall: &ToolCallDelta{Arguments: `{}`}},
		{ToolCall: &ToolCallDelta{Name: "echo"}},
	}}
	comp, err := Accumulate(context.Background(), s, nil)
	if err != nil {
		t.Fatal(err)
	}
	tc := comp.Message.ToolCalls[0]
	if tc.Name != "echo" {
		t.Errorf("Name = %q, want echo", tc.Name)
	}
	if tc.ID == "" {
		t.Error("missing id was not generated")
	}
}

func TestAccumulateEmptyArgsBecomeObject(t *testing.T) {
	s := callTurn("c", "echo")
	comp, err := Accumulate(context.Background(), s, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(comp.Message.ToolCalls[0].Args); got != "{}" {
		t.Errorf("Args = %q, want {}", got)
	}
}

func TestAccumulateTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	s := &sliceStream{deltas: []Delta{{Content: "partial"}}, err: boom}
	comp, err := Accumulate(context.Background(), s, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if comp.Message.Content != "" {
		t.Errorf("partial content leaked: %q", comp.Message.Content)
	}
	if !s.closed {
		t.Error("stream was not closed on error")
	}
}

func TestAccumulateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Accumulate(ctx, textTurn("never"), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestAccumulateEmitsDeltas(t *testing.T) {
	s := &sliceStream{deltas: []Delta{
		{Reasoning: "think"},
		{Content: "a"},
		{Content: "b"},
		{Usage: &Usage{InputTokens: 3, OutputTokens: 2}},
	}}
	ch := make(chan StreamEvent, 10)
	comp, err := Accumulate(context.Background(), s, ch)
	if err != nil {
		t.Fatal(err)
	}
	close(ch)

	var events []StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	if events[0].Type != EventReasoningDelta || events[0].Content != "think" {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Type != EventTextDelta || events[2].Content != "b" {
		t.Errorf("events = %+v", events)
	}
	if comp.Message.Reasoning != "think" {
		t.Errorf("Reasoning = %q", comp.Message.Reasoning)
	}
	if comp.Usage.InputTokens != 3 || comp.Usage.OutputTokens != 2 {
		t.Errorf("Usage = %+v", comp.Usage)
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
