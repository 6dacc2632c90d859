package trawl

import "context"

// Tracer opens spans around loop iterations. observer.NewTracer provides an
// OTEL-backed implementation; a nil Tracer disables tracing.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...SpanAttr) (context.Context, Span)
}

// Span is one traced operation. End must be called exactly once.
type Span interface {
	SetAttr(attrs ...SpanAttr)
	Event(name string, attrs ...SpanAttr)
	Error(err error)
	End()
}

// SpanAttr is a key-value attribute attached to a span or event.
type SpanAttr struct {
	Key   string
	Value any
}

func StringAttr(k, v string) SpanAttr { return SpanAttr{Key: k, Value: v} }

func IntAttr(k string, v int) SpanAttr { return SpanAttr{Key: k, Value: v} }

func BoolAttr(k string, v bool) SpanAttr { return SpanAttr{Key: k, Value: v} }

// startSpan is a nil-safe Tracer.Start. The returned Span is never nil.
func startSpan(ctx context.Context, t Tracer, name string, attrs ...SpanAttr) (context.Context, Span) {
	if t == nil {
		return ctx, noopSpan{}
	}
	return t.Start(ctx, name, attrs...)
}

type noopSpan struct{}

func (noopSpan) SetAttr(...SpanAttr) {}
func (noopSpan) Event(string, ...SpanAttr) {}
func (noopSpan) Error(error) {}
func (noopSpan) End() {}
