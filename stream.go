package trawl

import "encoding/json"

// StreamEventType identifies the kind of streaming event.
type StreamEventType string

const (
	// EventTextDelta carries an incremental text chunk from the LLM.
	EventTextDelta StreamEventType = "text-delta"
	// EventReasoningDelta carries an incremental chunk of reasoning text.
	EventReasoningDelta StreamEventType = "reasoning-delta"
	// EventToolCallStart signals a tool is about to be invoked.
	EventToolCallStart StreamEventType = "tool-call-start"
	// EventToolCallResult carries the result of a completed tool call.
	EventToolCallResult StreamEventType = "tool-call-result"
)

// StreamEvent is a typed event emitted while a turn is running.
// Consumers receive these on the channel passed to Loop.Run or Session.Turn.
type StreamEvent struct {
	// Type identifies the event kind.
	Type StreamEventType `json:"type"`
	// ID is the tool call ID (tool events only).
	ID string `json:"id,omitempty"`
	// Name is the tool name (tool events only).
	Name string `json:"name,omitempty"`
	// Content carries the text or reasoning delta, or the tool result text.
	Content string `json:"content,omitempty"`
	// Args carries the tool call arguments (tool-call-start only).
	Args json.RawMessage `json:"args,omitempty"`
}
