package trawl

import (
	"context"
	"log/slog"
	"time"
)

// defaultMaxIter bounds a turn when WithMaxIter is not given.
const defaultMaxIter = 25

// maxToolResultMessageLen caps the rune length of a tool result stored in the
// conversation. Longer results are cut with a marker so the model knows
// content was trimmed. Stream events keep the full text.
const maxToolResultMessageLen = 100_000

// nopLogger is a logger that discards all output. Used when no logger is set.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Loop drives the tool-calling exchange for one conversation: stream a
// completion, run the requested tool, fold the result back in, repeat until
// the model answers without calling a tool.
type Loop struct {
	provider         Provider
	tools            *ToolRegistry
	maxIter          int
	logger           *slog.Logger
	tracer           Tracer
	generationParams *GenerationParams
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithMaxIter sets how many completions a single Run may request before it
// gives up with *ErrMaxIterations (default 25).
func WithMaxIter(n int) LoopOption {
	return func(l *Loop) { l.maxIter = n }
}

// WithLoopLogger sets the structured logger.
func WithLoopLogger(lg *slog.Logger) LoopOption {
	return func(l *Loop) { l.logger = lg }
}

// WithTracer enables one span per loop iteration.
func WithTracer(t Tracer) LoopOption {
	return func(l *Loop) { l.tracer = t }
}

// WithGenerationParams attaches sampling overrides to every request.
func WithGenerationParams(p *GenerationParams) LoopOption {
	return func(l *Loop) { l.generationParams = p }
}

// NewLoop creates a Loop. A nil registry means no tools are offered.
func NewLoop(p Provider, tools *ToolRegistry, opts ...LoopOption) *Loop {
	if tools == nil {
		tools = NewToolRegistry()
	}
	l := &Loop{provider: p, tools: tools, maxIter: defaultMaxIter}
	for _, opt := range opts {
		opt(l)
	}
	if l.maxIter <= 0 {
		l.maxIter = defaultMaxIter
	}
	if l.logger == nil {
		l.logger = nopLogger
	}
	return l
}

// StepTrace records one tool call made during a Run.
type StepTrace struct {
	Name     string        `json:"name"`
	Input    string        `json:"input"`
	Output   string        `json:"output"`
	IsError  bool          `json:"is_error"`
	Duration time.Duration `json:"duration"`
}

// LoopResult is the outcome of a successful Run.
type LoopResult struct {
	// Final is the assistant message that ended the loop.
	Final ChatMessage
	// Messages holds only the entries appended during this Run: one
	// assistant tool-call message and one tool message per tool call.
	// Final is not included.
	Messages   []ChatMessage
	Usage      Usage
	Steps      []StepTrace
	Iterations int
}

// Run sends conv to the provider and executes tool calls until the model
// produces a message with none. conv is never modified.
//
// Transport failures and calls to unregistered tools end the run with an
// error. Tool-level failures are fed back to the model as "error: ..." tool
// messages. ch may be nil; Run does not close it.
func (l *Loop) Run(ctx context.Context, conv []ChatMessage, ch chan<- StreamEvent) (LoopResult, error) {
	var res LoopResult

	messages := make([]ChatMessage, len(conv), len(conv)+8)
	copy(messages, conv)
	defs := l.tools.AllDefinitions()

	for i := 0; i < l.maxIter; i++ {
		res.Iterations = i + 1
		iterCtx, span := startSpan(ctx, l.tracer, "loop.iteration",
			IntAttr("iteration", i),
			BoolAttr("has_tools", len(defs) > 0))

		req := ChatRequest{Messages: messages, Tools: defs, GenerationParams: l.generationParams}
		stream, err := l.provider.ChatStream(iterCtx, req)
		if err != nil {
			span.Error(err)
			span.End()
			l.logger.Error("completion request failed", "provider", l.provider.Name(), "iteration", i, "error", err)
			return res, err
		}
		comp, err := Accumulate(iterCtx, stream, ch)
		if err != nil {
			span.Error(err)
			span.End()
			l.logger.Error("completion stream failed", "provider", l.provider.Name(), "iteration", i, "error", err)
			return res, err
		}
		res.Usage = res.Usage.Add(comp.Usage)

		msg := comp.Message
		if len(msg.ToolCalls) == 0 {
			span.End()
			res.Final = msg
			l.logger.Debug("loop finished", "iterations", res.Iterations, "tool_calls", len(res.Steps))
			return res, nil
		}

		tc := msg.ToolCalls[0]
		span.SetAttr(StringAttr("tool", tc.Name))
		tool, ok := l.tools.Lookup(tc.Name)
		if !ok {
			err := &ErrUnknownTool{Name: tc.Name}
			span.Error(err)
			span.End()
			l.logger.Error("unknown tool requested", "tool", tc.Name)
			return res, err
		}

		if err := emit(ctx, ch, StreamEvent{Type: EventToolCallStart, ID: tc.ID, Name: tc.Name, Args: tc.Args}); err != nil {
			span.End()
			return res, err
		}

		start := time.Now()
		result, err := tool.Execute(iterCtx, tc.Name, tc.Args)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				span.Error(ctxErr)
				span.End()
				return res, ctxErr
			}
			result = ToolResult{Error: err.Error()}
		}
		text := result.Text()
		elapsed := time.Since(start)
		l.logger.Info("tool executed", "tool", tc.Name, "is_error", result.Error != "", "duration", elapsed)

		res.Steps = append(res.Steps, StepTrace{
			Name:     tc.Name,
			Input:    string(tc.Args),
			Output:   text,
			IsError:  result.Error != "",
			Duration: elapsed,
		})

		if err := emit(ctx, ch, StreamEvent{Type: EventToolCallResult, ID: tc.ID, Name: tc.Name, Content: text}); err != nil {
			span.End()
			return res, err
		}

		stored := text
		if r := []rune(stored); len(r) > maxToolResultMessageLen {
			stored = string(r[:maxToolResultMessageLen]) + "\n\n[output truncated]"
		}
		appended := []ChatMessage{
			{Role: "assistant", Content: msg.Content, Reasoning: msg.Reasoning, ToolCalls: []ToolCall{tc}},
			ToolResultMessage(tc.ID, stored),
		}
		messages = append(messages, appended...)
		res.Messages = append(res.Messages, appended...)
		span.End()
	}

	l.logger.Warn("max iterations reached", "limit", l.maxIter)
	return res, &ErrMaxIterations{Limit: l.maxIter}
}
