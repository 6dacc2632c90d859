package openaicompat

import (
	"encoding/json"

	"github.com/nevindra/trawl"
)

// BuildBody converts trawl ChatMessages and a model name into an OpenAI-format
// ChatRequest. System messages stay in the messages array as role "system".
// Options configure generation parameters.
func BuildBody(messages []trawl.ChatMessage, tools []trawl.ToolDefinition, model string, opts ...Option) ChatRequest {
	msgs := make([]Message, 0, len(messages))

	for _, m := range messages {
		switch {
		case m.Role == "assistant" && len(m.ToolCalls) > 0:
			tcs := make([]ToolCallRequest, 0, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				tcs = append(tcs, ToolCallRequest{
					Index: i,
					ID:    tc.ID,
					Type:  "function",
					Function: FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Args),
					},
				})
			}
			msg := Message{
				Role:             "assistant",
				ReasoningContent: m.Reasoning,
				ToolCalls:        tcs,
			}
			if m.Content != "" {
				msg.Content = m.Content
			}
			msgs = append(msgs, msg)

		case m.Role == "tool":
			msgs = append(msgs, Message{
				Role:       "tool",
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})

		default:
			msgs = append(msgs, Message{
				Role:    m.Role,
				Content: m.Content,
			})
		}
	}

	req := ChatRequest{
		Model:    model,
		Messages: msgs,
	}
	if len(tools) > 0 {
		req.Tools = BuildToolDefs(tools)
		parallel := false
		req.ParallelToolCalls = &parallel
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// BuildToolDefs converts trawl ToolDefinitions to OpenAI tool format.
func BuildToolDefs(tools []trawl.ToolDefinition) []Tool {
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		params := t.Parameters
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out = append(out, Tool{
			Type: "function",
			Function: Function{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
