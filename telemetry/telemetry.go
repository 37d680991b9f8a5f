// Package telemetry defines the ambient logging/metrics/tracing contracts
// available to the engine (C8). The engine opens a span per attempt and per
// iteration through Tracer; it does not call Logger or Metrics, and it does
// not attach the ExecutionID to spans. The engine depends only on these
// interfaces; Noop* and the zerolog/OTel-backed implementations are
// interchangeable at the call site.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Logger emits structured log messages with key-value pairs.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters, timers, and gauges.
	Metrics interface {
		IncCounter(name string, value float64, tags ...string)
		RecordTimer(name string, duration time.Duration, tags ...string)
		RecordGauge(name string, value float64, tags ...string)
	}

	// Tracer starts and retrieves spans.
	Tracer interface {
		Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
		Span(ctx context.Context) Span
	}

	// Span is a single unit of tracing work.
	Span interface {
		End(opts ...trace.SpanEndOption)
		AddEvent(name string, attrs ...any)
		SetStatus(code codes.Code, description string)
		RecordError(err error, opts ...trace.EventOption)
	}

	// Bundle groups the three telemetry surfaces so engine.Options carries a
	// single optional field instead of three.
	Bundle struct {
		Logger  Logger
		Metrics Metrics
		Tracer  Tracer
	}
)

// NewNoopBundle returns a Bundle whose members all discard their input.
// Used as the engine's default when no Bundle is supplied.
func NewNoopBundle() *Bundle {
	return &Bundle{Logger: NewNoopLogger(), Metrics: NewNoopMetrics(), Tracer: NewNoopTracer()}
}
