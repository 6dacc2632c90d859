package observer

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nevindra/trawl"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedTool wraps a trawl.Tool with OTEL instrumentation. When the result
// is a rendered browser view, the cursor and title from its header line are
// put on the span, so a trace shows which page each call produced.
type ObservedTool struct {
	inner trawl.Tool
	inst  *Instruments
}

// WrapTool returns an instrumented tool.
func WrapTool(inner trawl.Tool, inst *Instruments) *ObservedTool {
	return &ObservedTool{inner: inner, inst: inst}
}

func (o *ObservedTool) Definitions() []trawl.ToolDefinition {
	return o.inner.Definitions()
}

func (o *ObservedTool) Execute(ctx context.Context, name string, args json.RawMessage) (trawl.ToolResult, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "tool.execute", trace.WithAttributes(
		AttrToolName.String(name),
		AttrToolArgsLength.Int(len(args)),
	))
	defer span.End()
	start := time.Now()

	result, err := o.inner.Execute(ctx, name, args)
	elapsed := float64(time.Since(start).Milliseconds())

	status := toolStatus(result, err)
	switch status {
	case "error":
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case "tool_error":
		span.AddEvent("tool.error", trace.WithAttributes(attribute.String("error", truncate(result.Error, 200))))
	}

	attrs := []attribute.KeyValue{
		AttrToolStatus.String(status),
		AttrToolResultLength.Int(len(result.Content)),
	}
	if cursor, title, ok := viewHeader(result); ok {
		attrs = append(attrs, AttrBrowserCursor.Int(cursor), AttrBrowserTitle.String(title))
	}
	span.SetAttributes(attrs...)

	byTool := metric.WithAttributes(AttrToolName.String(name))
	o.inst.ToolExecutions.Add(ctx, 1, metric.WithAttributes(AttrToolName.String(name), attribute.String("status", status)))
	o.inst.ToolDuration.Record(ctx, elapsed, byTool)

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("browser tool call"))
	rec.AddAttributes(
		otellog.String("tool.name", name),
		otellog.String("tool.status", status),
		otellog.Int("tool.result_length", len(result.Content)),
		otellog.Float64("tool.duration_ms", elapsed),
	)
	o.inst.Logger.Emit(ctx, rec)

	return result, err
}

func toolStatus(result trawl.ToolResult, err error) string {
	switch {
	case err != nil:
		return "error"
	case result.Error != "":
		return "tool_error"
	default:
		return "ok"
	}
}

var headerPattern = regexp.MustCompile(`^\[(\d+)\] (.*)$`)

// viewHeader reads the "[cursor] title" line that starts a rendered page.
// Not-found find results carry their view in Error, so both are checked.
func viewHeader(r trawl.ToolResult) (int, string, bool) {
	text := r.Content
	if text == "" {
		text = r.Error
	}
	first, _, _ := strings.Cut(text, "\n")
	m := headerPattern.FindStringSubmatch(first)
	if m == nil {
		return 0, "", false
	}
	cursor, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return cursor, m[2], true
}

var _ trawl.Tool = (*ObservedTool)(nil)

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
