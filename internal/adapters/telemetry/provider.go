package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/kiln/internal/core/ports"
)

// InstrumentationName names the tracer kiln registers with OpenTelemetry.
const InstrumentationName = "kiln"

// attrUnit carries the unit a task span belongs to.
const attrUnit = "kiln.unit"

// OTelTracer implements ports.Tracer on top of OpenTelemetry.
// Task output and plans are forwarded to the attached renderer.
type OTelTracer struct {
	provider trace.TracerProvider

	mu       sync.RWMutex
	renderer ports.Renderer
}

// NewOTelTracer creates a tracer on provider. A nil provider uses the global one,
// which may be replaced later with otel.SetTracerProvider.
func NewOTelTracer(provider trace.TracerProvider) *OTelTracer {
	return &OTelTracer{provider: provider}
}

// WithRenderer attaches the renderer that receives plans and task output.
// Passing nil detaches it.
func (t *OTelTracer) WithRenderer(r ports.Renderer) *OTelTracer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.renderer = r
	return t
}

func (t *OTelTracer) currentRenderer() ports.Renderer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.renderer
}

func (t *OTelTracer) tracer() trace.Tracer {
	if t.provider != nil {
		return t.provider.Tracer(InstrumentationName)
	}
	return otel.Tracer(InstrumentationName)
}

// Start creates a span. Writes to the span are batched to the renderer.
func (t *OTelTracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var startOpts []trace.SpanStartOption
	if cfg.Unit != "" {
		startOpts = append(startOpts, trace.WithAttributes(attribute.String(attrUnit, cfg.Unit)))
	}
	ctx, span := t.tracer().Start(ctx, name, startOpts...)

	s := &OTelSpan{span: span}
	if r := t.currentRenderer(); r != nil {
		spanID := span.SpanContext().SpanID().String()
		s.batcher = NewBatchProcessor(0, 0, func(data []byte) {
			r.OnTaskLog(spanID, data)
		})
	}
	return ctx, s
}

// EmitPlan records the plan on the current span and hands it to the renderer.
func (t *OTelTracer) EmitPlan(ctx context.Context, taskNames []string, deps map[string][]string, targets []string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("plan_emitted", trace.WithAttributes(
			attribute.StringSlice("tasks", taskNames),
			attribute.StringSlice("targets", targets),
		))
	}
	if r := t.currentRenderer(); r != nil {
		r.OnPlanEmit(taskNames, deps, targets)
	}
}

// OTelSpan implements ports.Span using OpenTelemetry.
type OTelSpan struct {
	span    trace.Span
	batcher *BatchProcessor
}

// End flushes buffered output and completes the span.
func (s *OTelSpan) End() {
	if s.batcher != nil {
		_ = s.batcher.Close()
	}
	s.span.End()
}

// RecordError records err and marks the span as failed.
func (s *OTelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetAttribute adds a key-value pair to the span.
func (s *OTelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case []string:
		s.span.SetAttributes(attribute.StringSlice(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

// Write sends p to the renderer, or records it as a span event when no renderer is attached.
func (s *OTelSpan) Write(p []byte) (int, error) {
	if s.batcher != nil {
		return s.batcher.Write(p)
	}
	s.span.AddEvent("log", trace.WithAttributes(attribute.String("message", string(p))))
	return len(p), nil
}
