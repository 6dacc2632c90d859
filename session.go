package trawl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// TurnState is session-scoped tool state that lives for exactly one turn.
// Reset runs before the turn touches the model. Finalize runs once over the
// final answer after the loop succeeds and may rewrite it.
type TurnState interface {
	Reset()
	Finalize(text string) string
}

// Session owns one conversation and the tool state bound to it. Turns on a
// Session are serialized; different Sessions share nothing mutable and may
// run concurrently.
type Session struct {
	id           string
	loop         *Loop
	systemPrompt string
	state        TurnState
	transcript   TranscriptStore
	logger       *slog.Logger

	mu      sync.Mutex
	history []ChatMessage
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSystemPrompt prepends a system message to every request. It is not
// stored in history.
func WithSystemPrompt(s string) SessionOption {
	return func(x *Session) { x.systemPrompt = s }
}

// WithTurnState binds tool state that must be reset between turns.
func WithTurnState(st TurnState) SessionOption {
	return func(x *Session) { x.state = st }
}

// WithTranscript persists committed messages to store.
func WithTranscript(store TranscriptStore) SessionOption {
	return func(x *Session) { x.transcript = store }
}

// WithSessionLogger sets the structured logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(x *Session) { x.logger = l }
}

// NewSession creates a Session with an empty history.
func NewSession(id string, loop *Loop, opts ...SessionOption) *Session {
	s := &Session{id: id, loop: loop}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = nopLogger
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// TurnResult is the outcome of a successful Turn.
type TurnResult struct {
	// Answer is the final text after Finalize.
	Answer string
	// Raw is the final text as the model produced it.
	Raw        string
	Reasoning  string
	Usage      Usage
	Steps      []StepTrace
	Iterations int
}

// Load replaces the in-memory history with the transcript stored for this
// session. It is a no-op without a transcript store.
func (s *Session) Load(ctx context.Context) error {
	if s.transcript == nil {
		return nil
	}
	msgs, err := s.transcript.LoadMessages(ctx, s.id)
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}
	s.mu.Lock()
	s.history = msgs
	s.mu.Unlock()
	s.logger.Debug("transcript loaded", "session", s.id, "messages", len(msgs))
	return nil
}

// Messages returns a copy of the committed history.
func (s *Session) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// Turn runs one user input to a final answer. Stream events are sent on ch
// when it is non-nil; ch is not closed.
//
// History is only extended when the turn succeeds. A transport failure, an
// unknown tool or a cancelled context leaves it exactly as it was.
func (s *Session) Turn(ctx context.Context, input string, ch chan<- StreamEvent) (TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil {
		s.state.Reset()
	}

	user := UserMessage(input)
	conv := make([]ChatMessage, 0, len(s.history)+2)
	if s.systemPrompt != "" {
		conv = append(conv, SystemMessage(s.systemPrompt))
	}
	conv = append(conv, s.history...)
	conv = append(conv, user)

	res, err := s.loop.Run(ctx, conv, ch)
	if err != nil {
		s.logger.Error("turn failed", "session", s.id, "iterations", res.Iterations, "error", err)
		return TurnResult{}, err
	}

	raw := res.Final.Content
	answer := raw
	if s.state != nil {
		answer = s.state.Finalize(raw)
	}
	final := ChatMessage{Role: "assistant", Content: answer, Reasoning: res.Final.Reasoning}

	committed := make([]ChatMessage, 0, len(res.Messages)+2)
	committed = append(committed, user)
	committed = append(committed, res.Messages...)
	committed = append(committed, final)

	if s.transcript != nil {
		if err := s.transcript.AppendMessages(ctx, s.id, committed); err != nil {
			return TurnResult{}, fmt.Errorf("save transcript: %w", err)
		}
	}
	s.history = append(s.history, committed...)

	s.logger.Info("turn completed",
		"session", s.id,
		"iterations", res.Iterations,
		"tool_calls", len(res.Steps),
		"input_tokens", res.Usage.InputTokens,
		"output_tokens", res.Usage.OutputTokens)

	return TurnResult{
		Answer:     answer,
		Raw:        raw,
		Reasoning:  res.Final.Reasoning,
		Usage:      res.Usage,
		Steps:      res.Steps,
		Iterations: res.Iterations,
	}, nil
}
