// Package observer provides OTEL-based observability for trawl.
//
// It wraps Provider, Tool and Session with instrumented versions that emit
// traces, metrics, and logs via OpenTelemetry. Users export to any
// OTEL-compatible backend by setting standard OTEL env vars.
package observer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/nevindra/trawl/observer"

// Instruments holds all OTEL instruments used by the observer wrappers.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	// Model calls
	TokenUsage  metric.Int64Counter
	CostTotal   metric.Float64Counter
	LLMRequests metric.Int64Counter
	LLMDuration metric.Float64Histogram

	// Tool calls
	ToolExecutions metric.Int64Counter
	ToolDuration   metric.Float64Histogram

	// Turns
	Turns          metric.Int64Counter
	TurnDuration   metric.Float64Histogram
	TurnIterations metric.Int64Histogram

	Cost *CostCalculator
}

type shutdownFunc func(context.Context) error

// Init installs global OTEL trace, metric and log providers that export over
// OTLP/HTTP, then builds the instruments on top of them. Endpoints and
// headers come from the standard OTEL_EXPORTER_OTLP_* env vars.
//
// The returned shutdown flushes and stops all three providers; call it on
// exit.
func Init(ctx context.Context, serviceName string, pricing map[string]ModelPricing) (*Instruments, func(context.Context) error, error) {
	if serviceName == "" {
		serviceName = "trawl"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	var stops []shutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(stops) - 1; i >= 0; i-- {
			errs = append(errs, stops[i](ctx))
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*Instruments, func(context.Context) error, error) {
		_ = shutdown(ctx)
		return nil, nil, err
	}

	for _, install := range []func(context.Context, *resource.Resource) (shutdownFunc, error){
		installTracing, installMetrics, installLogs,
	} {
		stop, err := install(ctx, res)
		if err != nil {
			return fail(err)
		}
		stops = append(stops, stop)
	}

	inst, err := newInstruments(pricing)
	if err != nil {
		return fail(err)
	}
	return inst, shutdown, nil
}

func installTracing(ctx context.Context, res *resource.Resource) (shutdownFunc, error) {
	exp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func installMetrics(ctx context.Context, res *resource.Resource) (shutdownFunc, error) {
	exp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

func installLogs(ctx context.Context, res *resource.Resource) (shutdownFunc, error) {
	exp, err := otlploghttp.New(ctx)
	if err != nil {
		return nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)
	return lp.Shutdown, nil
}

// instrumentBuilder creates instruments on one meter and keeps the first
// error, so newInstruments reads as a flat list.
type instrumentBuilder struct {
	meter metric.Meter
	err   error
}

func (b *instrumentBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.err = errors.Join(b.err, err)
	return c
}

func (b *instrumentBuilder) floatCounter(name, desc, unit string) metric.Float64Counter {
	c, err := b.meter.Float64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.err = errors.Join(b.err, err)
	return c
}

func (b *instrumentBuilder) histogram(name, desc, unit string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.err = errors.Join(b.err, err)
	return h
}

func (b *instrumentBuilder) intHistogram(name, desc, unit string) metric.Int64Histogram {
	h, err := b.meter.Int64Histogram(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.err = errors.Join(b.err, err)
	return h
}

func newInstruments(pricing map[string]ModelPricing) (*Instruments, error) {
	meter := otel.Meter(scopeName)
	b := &instrumentBuilder{meter: meter}

	inst := &Instruments{
		Tracer: otel.Tracer(scopeName),
		Meter:  meter,
		Logger: global.GetLoggerProvider().Logger(scopeName),

		TokenUsage:  b.counter("llm.token.usage", "Total tokens consumed", "{token}"),
		CostTotal:   b.floatCounter("llm.cost.total", "Cumulative LLM cost in USD", "USD"),
		LLMRequests: b.counter("llm.requests", "Streaming completion requests", "{request}"),
		LLMDuration: b.histogram("llm.duration", "Time from request to end of stream", "ms"),

		ToolExecutions: b.counter("tool.executions", "Browser tool calls", "{execution}"),
		ToolDuration:   b.histogram("tool.duration", "Browser tool call duration", "ms"),

		Turns:          b.counter("turn.count", "Conversation turns completed or failed", "{turn}"),
		TurnDuration:   b.histogram("turn.duration", "Turn duration including all model and tool calls", "ms"),
		TurnIterations: b.intHistogram("turn.iterations", "Model calls per turn", "{call}"),

		Cost: NewCostCalculator(pricing),
	}
	if b.err != nil {
		return nil, b.err
	}
	return inst, nil
}
