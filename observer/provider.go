package observer

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/nevindra/trawl"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedProvider wraps a trawl.Provider with OTEL instrumentation. One span
// covers the whole stream, from open until end-of-stream, error or Close.
type ObservedProvider struct {
	inner trawl.Provider
	inst  *Instruments
	model string
}

// WrapProvider returns an instrumented provider that emits traces, metrics, and logs.
func WrapProvider(inner trawl.Provider, model string, inst *Instruments) *ObservedProvider {
	return &ObservedProvider{inner: inner, inst: inst, model: model}
}

func (o *ObservedProvider) Name() string { return o.inner.Name() }

func (o *ObservedProvider) ChatStream(ctx context.Context, req trawl.ChatRequest) (trawl.DeltaStream, error) {
	spanAttrs := []attribute.KeyValue{
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
	}
	if len(req.Tools) > 0 {
		toolNames := make([]string, len(req.Tools))
		for i, t := range req.Tools {
			toolNames[i] = t.Name
		}
		spanAttrs = append(spanAttrs,
			AttrToolCount.Int(len(req.Tools)),
			AttrToolNames.StringSlice(toolNames),
		)
	}

	ctx, span := o.inst.Tracer.Start(ctx, "llm.chat_stream", trace.WithAttributes(spanAttrs...))
	s := &observedStream{o: o, ctx: ctx, span: span, start: time.Now()}

	inner, err := o.inner.ChatStream(ctx, req)
	if err != nil {
		s.finish(err)
		return nil, err
	}
	s.inner = inner
	return s, nil
}

// observedStream counts deltas and records the call once the stream ends.
type observedStream struct {
	inner trawl.DeltaStream
	o     *ObservedProvider
	ctx   context.Context
	span  trace.Span
	start time.Time

	chunks int
	usage  trawl.Usage
	reason string
	once   sync.Once
}

func (s *observedStream) Recv() (trawl.Delta, error) {
	d, err := s.inner.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.finish(nil)
		} else {
			s.finish(err)
		}
		return d, err
	}
	s.chunks++
	if d.Usage != nil {
		s.usage = *d.Usage
	}
	if d.FinishReason != "" {
		s.reason = d.FinishReason
	}
	return d, nil
}

func (s *observedStream) Close() error {
	err := s.inner.Close()
	s.finish(s.ctx.Err())
	return err
}

func (s *observedStream) finish(err error) {
	s.once.Do(func() {
		durationMs := float64(time.Since(s.start).Milliseconds())
		status := "ok"
		if err != nil {
			status = "error"
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
		}
		s.span.SetAttributes(AttrStreamChunks.Int(s.chunks))
		if s.reason != "" {
			s.span.SetAttributes(AttrFinishReason.String(s.reason))
		}
		s.o.record(s.ctx, s.span, "chat_stream", status, durationMs, s.usage)
		s.span.End()
	})
}

func (o *ObservedProvider) record(ctx context.Context, span trace.Span, method, status string, durationMs float64, usage trawl.Usage) {
	cost := o.inst.Cost.Calculate(o.model, usage.InputTokens, usage.OutputTokens)

	attrs := metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		AttrLLMMethod.String(method),
	)

	span.SetAttributes(
		AttrTokensInput.Int(usage.InputTokens),
		AttrTokensOutput.Int(usage.OutputTokens),
		AttrCostUSD.Float64(cost),
	)

	o.inst.TokenUsage.Add(ctx, int64(usage.InputTokens), metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		attribute.String("direction", "input"),
	))
	o.inst.TokenUsage.Add(ctx, int64(usage.OutputTokens), metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		attribute.String("direction", "output"),
	))
	o.inst.CostTotal.Add(ctx, cost, attrs)
	o.inst.LLMRequests.Add(ctx, 1, metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		AttrLLMMethod.String(method),
		attribute.String("status", status),
	))
	o.inst.LLMDuration.Record(ctx, durationMs, attrs)

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("llm call completed"))
	rec.AddAttributes(
		otellog.String("llm.model", o.model),
		otellog.String("llm.provider", o.inner.Name()),
		otellog.String("llm.method", method),
		otellog.Int("llm.tokens.input", usage.InputTokens),
		otellog.Int("llm.tokens.output", usage.OutputTokens),
		otellog.Float64("llm.cost_usd", cost),
		otellog.Float64("llm.duration_ms", durationMs),
		otellog.String("status", status),
	)
	o.inst.Logger.Emit(ctx, rec)
}

var _ trawl.Provider = (*ObservedProvider)(nil)
