package trawl

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Delta is one streamed fragment of a model response.
type Delta struct {
	Content      string
	Reasoning    string
	ToolCall     *ToolCallDelta
	FinishReason string
	// Usage is set on the fragment that carries token accounting, usually the last.
	Usage *Usage
}

// ToolCallDelta is a partial tool call. Name and ID usually arrive on the
// first fragment; Arguments is a string piece to append to the call's buffer.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// DeltaStream yields the fragments of one model turn. Recv returns io.EOF
// once the stream is exhausted.
type DeltaStream interface {
	Recv() (Delta, error)
	Close() error
}

// Completion is a fully assembled model turn.
type Completion struct {
	Message      ChatMessage
	FinishReason string
	Usage        Usage
}

// Accumulate drains stream into a single assistant message.
//
// Only one tool call per turn is tracked: the first tool-call fragment seen
// installs the pending call and later fragments with the same index append
// their argument piece to its buffer. Fragments of parallel calls (another
// index, or another non-empty id) are dropped. A transport error
// is returned as-is and the partial message is dropped. When ch is non-nil,
// text and reasoning increments are forwarded as they arrive.
//
// The stream is closed before Accumulate returns.
func Accumulate(ctx context.Context, stream DeltaStream, ch chan<- StreamEvent) (Completion, error) {
	defer stream.Close()

	var (
		content      strings.Builder
		reasoning    strings.Builder
		pending      *ToolCall
		pendingIndex int
		args         strings.Builder
		out          Completion
	)

	for {
		if err := ctx.Err(); err != nil {
			return Completion{}, err
		}

		d, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Completion{}, err
		}

		if d.Content != "" {
			content.WriteString(d.Content)
			if err := emit(ctx, ch, StreamEvent{Type: EventTextDelta, Content: d.Content}); err != nil {
				return Completion{}, err
			}
		}
		if d.Reasoning != "" {
			reasoning.WriteString(d.Reasoning)
			if err := emit(ctx, ch, StreamEvent{Type: EventReasoningDelta, Content: d.Reasoning}); err != nil {
				return Completion{}, err
			}
		}
		if tc := d.ToolCall; tc != nil {
			switch {
			case pending == nil:
				pending = &ToolCall{ID: tc.ID, Name: tc.Name}
				pendingIndex = tc.Index
				args.WriteString(tc.Arguments)
			case tc.Index != pendingIndex || (tc.ID != "" && pending.ID != "" && tc.ID != pending.ID):
				// parallel call; only the first is kept
			default:
				if pending.ID == "" {
					pending.ID = tc.ID
				}
				if pending.Name == "" {
					pending.Name = tc.Name
				}
				args.WriteString(tc.Arguments)
			}
		}
		if d.FinishReason != "" {
			out.FinishReason = d.FinishReason
		}
		if d.Usage != nil {
			out.Usage = *d.Usage
		}
	}

	out.Message = ChatMessage{
		Role:      "assistant",
		Content:   content.String(),
		Reasoning: reasoning.String(),
	}
	if pending != nil {
		raw := args.String()
		if strings.TrimSpace(raw) == "" {
			raw = "{}"
		}
		pending.Args = []byte(raw)
		if pending.ID == "" {
			pending.ID = NewID()
		}
		out.Message.ToolCalls = []ToolCall{*pending}
	}
	return out, nil
}

// emit sends ev on ch unless ch is nil. It gives up when ctx is done.
func emit(ctx context.Context, ch chan<- StreamEvent, ev StreamEvent) error {
	if ch == nil {
		return nil
	}
	select {
	case ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562). It
// names tool calls whose stream never carried an id.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
