package observer

import (
	"context"
	"fmt"

	"github.com/nevindra/trawl"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NewTracer adapts the global OTEL tracer to trawl.Tracer so Loop can open
// one span per iteration. Without Init the spans go nowhere.
func NewTracer() trawl.Tracer {
	return &loopTracer{inner: otel.Tracer(scopeName)}
}

type loopTracer struct {
	inner trace.Tracer
}

func (t *loopTracer) Start(ctx context.Context, name string, attrs ...trawl.SpanAttr) (context.Context, trawl.Span) {
	ctx, span := t.inner.Start(ctx, name, trace.WithAttributes(spanAttrs(attrs)...))
	return ctx, loopSpan{span}
}

type loopSpan struct {
	trace.Span
}

func (s loopSpan) SetAttr(attrs ...trawl.SpanAttr) {
	s.SetAttributes(spanAttrs(attrs)...)
}

func (s loopSpan) Event(name string, attrs ...trawl.SpanAttr) {
	s.AddEvent(name, trace.WithAttributes(spanAttrs(attrs)...))
}

func (s loopSpan) Error(err error) {
	s.RecordError(err)
	s.SetStatus(codes.Error, err.Error())
}

func (s loopSpan) End() { s.Span.End() }

func spanAttrs(attrs []trawl.SpanAttr) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			out = append(out, attribute.String(a.Key, v))
		case int:
			out = append(out, attribute.Int(a.Key, v))
		case int64:
			out = append(out, attribute.Int64(a.Key, v))
		case float64:
			out = append(out, attribute.Float64(a.Key, v))
		case bool:
			out = append(out, attribute.Bool(a.Key, v))
		default:
			out = append(out, attribute.String(a.Key, fmt.Sprint(v)))
		}
	}
	return out
}

var (
	_ trawl.Tracer = (*loopTracer)(nil)
	_ trawl.Span   = loopSpan{}
)
