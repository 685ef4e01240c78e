package ports

import (
	"context"
	"io"
)

//go:generate mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Tracer is the entry point for creating spans.
type Tracer interface {
	// Start creates a new span.
	Start(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)
	// EmitPlan signals that a set of tasks is planned for execution.
	EmitPlan(ctx context.Context, taskNames []string, deps map[string][]string, targets []string)
}

// Span represents a unit of work.
type Span interface {
	io.Writer
	// End completes the span.
	End()
	// RecordError records an error for the span.
	RecordError(err error)
	// SetAttribute adds a key-value pair to the span.
	SetAttribute(key string, value any)
}

// SpanConfig holds configuration for a starting span.
type SpanConfig struct {
	// Unit is the unit a task span belongs to.
	Unit string
}

// SpanOption is a functional option for configuring a span.
type SpanOption func(*SpanConfig)

// WithUnit tags a span with the unit it belongs to.
func WithUnit(unit string) SpanOption {
	return func(c *SpanConfig) {
		c.Unit = unit
	}
}

// AttrCached marks a span whose task was restored from cache or shadowed.
const AttrCached = "kiln.cached"
