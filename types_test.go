package trawl

import "testing"

func TestMessageConstructors(t *testing.T) {
	tests := []struct {
		name    string
		msg     ChatMessage
		role    string
		content string
	}{
		{"UserMessage", UserMessage("hello"), "user", "hello"},
		{"SystemMessage", SystemMessage("you are helpful"), "system", "you are helpful"},
		{"AssistantMessage", AssistantMessage("sure thing"), "assistant", "sure thing"},
		{"ToolResultMessage", ToolResultMessage("call-123", "result data"), "tool", "result data"},
		{"Empty", UserMessage(""), "user", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.msg.Role != tt.role {
				t.Errorf("Role = %q, want %q", tt.msg.Role, tt.role)
			}
			if tt.msg.Content != tt.content {
				t.Errorf("Content = %q, want %q", tt.msg.Content, tt.content)
			}
			if len(tt.msg.ToolCalls) != 0 {
				t.Errorf("ToolCalls = %v, want empty", tt.msg.ToolCalls)
			}
		})
	}
}

func TestToolResultMessageCorrelates(t *testing.T) {
	msg := ToolResultMessage("call-abc", "tool output")
	if msg.ToolCallID != "call-abc" {
		t.Errorf("ToolCallID = %q, want call-abc", msg.ToolCallID)
	}
	if msg.Content != "tool output" {
		t.Errorf("Content = %q, want tool output", msg.Content)
	}
}

func TestUsageAdd(t *testing.T) {
	got := Usage{InputTokens: 1, OutputTokens: 2}.Add(Usage{InputTokens: 10, OutputTokens: 20})
	if got.InputTokens != 11 || got.OutputTokens != 22 {
		t.Errorf("Add = %+v, want {11 22}", got)
	}
}
