package observer

import (
	"context"
	"errors"
	"time"

	"github.com/nevindra/trawl"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Turner runs conversation turns. *trawl.Session implements it.
type Turner interface {
	ID() string
	Turn(ctx context.Context, input string, ch chan<- trawl.StreamEvent) (trawl.TurnResult, error)
}

// ObservedSession wraps a Turner so every turn gets a parent span that
// contains the model and tool spans of that turn.
type ObservedSession struct {
	inner Turner
	inst  *Instruments
}

// WrapSession returns an instrumented Turner.
func WrapSession(inner Turner, inst *Instruments) *ObservedSession {
	return &ObservedSession{inner: inner, inst: inst}
}

func (o *ObservedSession) ID() string { return o.inner.ID() }

func (o *ObservedSession) Turn(ctx context.Context, input string, ch chan<- trawl.StreamEvent) (trawl.TurnResult, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "session.turn", trace.WithAttributes(
		AttrSessionID.String(o.inner.ID()),
	))
	defer span.End()
	start := time.Now()

	res, err := o.inner.Turn(ctx, input, ch)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	var maxIter *trawl.ErrMaxIterations
	switch {
	case err != nil && ctx.Err() != nil:
		status = "cancelled"
		span.SetStatus(codes.Error, "cancelled")
	case errors.As(err, &maxIter):
		status = "max_iterations"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case err != nil:
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.SetAttributes(
		AttrTurnStatus.String(status),
		AttrTurnIterations.Int(res.Iterations),
		AttrTokensInput.Int(res.Usage.InputTokens),
		AttrTokensOutput.Int(res.Usage.OutputTokens),
	)

	o.inst.Turns.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	o.inst.TurnDuration.Record(ctx, durationMs)
	if err == nil {
		o.inst.TurnIterations.Record(ctx, int64(res.Iterations))
	}

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("turn completed"))
	rec.AddAttributes(
		otellog.String("session.id", o.inner.ID()),
		otellog.String("turn.status", status),
		otellog.Int("turn.iterations", res.Iterations),
		otellog.Int("tokens.input", res.Usage.InputTokens),
		otellog.Int("tokens.output", res.Usage.OutputTokens),
		otellog.Float64("duration_ms", durationMs),
	)
	o.inst.Logger.Emit(ctx, rec)

	return res, err
}

var _ Turner = (*trawl.Session)(nil)
