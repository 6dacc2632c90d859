package trawl

import (
	"net/http"
	"testing"
	"time"
)

func TestErrLLMError(t *testing.T) {
	err := &ErrLLM{Provider: "openai", Message: "bad response"}
	if got := err.Error(); got != "openai: bad response" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrHTTPError(t *testing.T) {
	err := &ErrHTTP{Status: 429, Body: "rate limited"}
	if got := err.Error(); got != "http 429: rate limited" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrUnknownToolError(t *testing.T) {
	err := &ErrUnknownTool{Name: "teleport"}
	if got := err.Error(); got != `model requested unknown tool "teleport"` {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrMaxIterationsError(t *testing.T) {
	err := &ErrMaxIterations{Limit: 25}
	if got := err.Error(); got != "tool loop exceeded 25 iterations without a final answer" {
		t.Errorf("Error() = %q", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"  ", 0},
		{"5", 5 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"soon", 0},
		{time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		if got := ParseRetryAfter(tt.in); got != tt.want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	if got := ParseRetryAfter(future); got <= 0 || got > time.Minute {
		t.Errorf("ParseRetryAfter(future) = %v, want (0, 1m]", got)
	}
}
