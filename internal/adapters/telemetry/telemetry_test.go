package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/core/ports"
)

func recordingProvider(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, tp
}

func TestOTelTracer_StartTagsUnit(t *testing.T) {
	sr, tp := recordingProvider(t)
	tracer := telemetry.NewOTelTracer(tp)

	_, span := tracer.Start(context.Background(), "app:build", ports.WithUnit("app"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "app:build", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("kiln.unit", "app"))
}

func TestOTelSpan_SetAttribute(t *testing.T) {
	sr, tp := recordingProvider(t)
	tracer := telemetry.NewOTelTracer(tp)

	_, span := tracer.Start(context.Background(), "attrs")
	span.SetAttribute("str", "val")
	span.SetAttribute("int", 123)
	span.SetAttribute("int64", int64(456))
	span.SetAttribute("float", 3.14)
	span.SetAttribute("bool", true)
	span.SetAttribute("slice", []string{"a", "b"})
	span.SetAttribute("other", struct{}{})
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := spans[0].Attributes()
	assert.Contains(t, attrs, attribute.String("str", "val"))
	assert.Contains(t, attrs, attribute.Int64("int", 123))
	assert.Contains(t, attrs, attribute.Int64("int64", 456))
	assert.Contains(t, attrs, attribute.Float64("float", 3.14))
	assert.Contains(t, attrs, attribute.Bool("bool", true))
	assert.Contains(t, attrs, attribute.StringSlice("slice", []string{"a", "b"}))
	assert.Contains(t, attrs, attribute.String("other", "{}"))
}

func TestOTelSpan_WriteWithoutRenderer(t *testing.T) {
	sr, tp := recordingProvider(t)
	tracer := telemetry.NewOTelTracer(tp)

	_, span := tracer.Start(context.Background(), "log")
	n, err := span.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	events := spans[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "log", events[0].Name)
	assert.Equal(t, "hello", events[0].Attributes[0].Value.AsString())
}

func TestOTelSpan_RecordError(t *testing.T) {
	sr, tp := recordingProvider(t)
	tracer := telemetry.NewOTelTracer(tp)

	_, span := tracer.Start(context.Background(), "fails")
	span.RecordError(errors.New("exit status 1"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "exit status 1", spans[0].Status().Description)
}

func TestOTelTracer_EmitPlan(t *testing.T) {
	sr, tp := recordingProvider(t)
	renderer := newFakeRenderer()
	tracer := telemetry.NewOTelTracer(tp).WithRenderer(renderer)

	ctx, root := tp.Tracer("test").Start(context.Background(), "root")
	tracer.EmitPlan(ctx, []string{"a:build", "b:build"}, map[string][]string{"b:build": {"a:build"}}, []string{"b:build"})
	root.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "plan_emitted", spans[0].Events()[0].Name)

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	assert.Equal(t, [][]string{{"a:build", "b:build"}}, renderer.plans)
}

func TestOTelTracer_EmitPlanWithoutRenderer(_ *testing.T) {
	tracer := telemetry.NewOTelTracer(nil)
	tracer.EmitPlan(context.Background(), []string{"a:build"}, nil, nil)
}

func TestOTelTracer_StreamsToRenderer(t *testing.T) {
	renderer := newFakeRenderer()
	tp := telemetry.NewProvider(renderer)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	tracer := telemetry.NewOTelTracer(tp).WithRenderer(renderer)

	_, span := tracer.Start(context.Background(), "app:build", ports.WithUnit("app"))
	_, err := span.Write([]byte("compiling\n"))
	require.NoError(t, err)
	span.SetAttribute(ports.AttrCached, true)
	span.End()

	events, completes := renderer.snapshot()
	assert.Equal(t, []string{"start:app:build", "log", "complete"}, events)
	require.Len(t, completes, 1)
	assert.True(t, completes[0].cached)
	require.NoError(t, completes[0].err)

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	assert.Equal(t, "compiling\n", string(renderer.logs[completes[0].spanID]))
	assert.Equal(t, "app:build", renderer.starts[completes[0].spanID])
}

func TestOTelTracer_DetachRenderer(t *testing.T) {
	renderer := newFakeRenderer()
	_, tp := recordingProvider(t)
	tracer := telemetry.NewOTelTracer(tp).WithRenderer(renderer)
	tracer.WithRenderer(nil)

	_, span := tracer.Start(context.Background(), "quiet")
	_, err := span.Write([]byte("ignored"))
	require.NoError(t, err)
	span.End()

	events, _ := renderer.snapshot()
	assert.Empty(t, events)
}
