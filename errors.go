package trawl

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrLLM is a provider-side failure that is not an HTTP status (bad request
// encoding, undecodable response, ...).
type ErrLLM struct {
	Provider string
	Message  string
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ErrHTTP is a non-2xx response from a provider endpoint.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration // zero when the server sent no Retry-After
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ErrUnknownTool is returned by the loop when the model calls a tool that is
// not registered. It aborts the turn.
type ErrUnknownTool struct {
	Name string
}

func (e *ErrUnknownTool) Error() string {
	return fmt.Sprintf("model requested unknown tool %q", e.Name)
}

// ErrMaxIterations is returned when the model keeps calling tools past the
// configured iteration limit.
type ErrMaxIterations struct {
	Limit int
}

func (e *ErrMaxIterations) Error() string {
	return fmt.Sprintf("tool loop exceeded %d iterations without a final answer", e.Limit)
}

// ParseRetryAfter parses an HTTP Retry-After header given either as delay
// seconds or as an HTTP date. Unparseable or past values yield 0.
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := time.Parse(time.RFC1123, v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
