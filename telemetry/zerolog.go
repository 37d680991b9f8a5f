package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type (
	// ZerologLogger emits structured logs through a zerolog.Logger.
	ZerologLogger struct {
		log zerolog.Logger
	}

	// OTelMetrics records counters, timers, and gauges through an OTel meter.
	OTelMetrics struct {
		meter metric.Meter
	}

	// OTelTracer starts and retrieves spans through an OTel tracer.
	OTelTracer struct {
		tracer trace.Tracer
	}

	otelSpan struct {
		span trace.Span
	}
)

// NewZerologLogger wraps an existing zerolog.Logger as a Logger.
func NewZerologLogger(log zerolog.Logger) Logger {
	return ZerologLogger{log: log}
}

// NewOTelMetrics constructs a Metrics recorder against the global
// MeterProvider under the given instrumentation name.
func NewOTelMetrics(instrumentationName string) Metrics {
	return &OTelMetrics{meter: otel.Meter(instrumentationName)}
}

// NewOTelTracer constructs a Tracer against the global TracerProvider under
// the given instrumentation name.
func NewOTelTracer(instrumentationName string) Tracer {
	return &OTelTracer{tracer: otel.Tracer(instrumentationName)}
}

func (l ZerologLogger) event(ctx context.Context, ev *zerolog.Event, msg string, keyvals []any) {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, keyvals[i+1])
	}
	ev.Ctx(ctx).Msg(msg)
}

// Debug emits a debug-level log message with structured key-value pairs.
func (l ZerologLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	l.event(ctx, l.log.Debug(), msg, keyvals)
}

// Info emits an info-level log message with structured key-value pairs.
func (l ZerologLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	l.event(ctx, l.log.Info(), msg, keyvals)
}

// Warn emits a warning-level log message with structured key-value pairs.
func (l ZerologLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	l.event(ctx, l.log.Warn(), msg, keyvals)
}

// Error emits an error-level log message with structured key-value pairs.
func (l ZerologLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	l.event(ctx, l.log.Error(), msg, keyvals)
}

// IncCounter increments a counter metric by the given value.
func (m *OTelMetrics) IncCounter(name string, value float64, tags ...string) {
	counter, err := m.meter.Float64Counter(name)
	if err != nil {
		return
	}
	counter.Add(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}

// RecordTimer records a duration histogram metric.
func (m *OTelMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	histogram, err := m.meter.Float64Histogram(name)
	if err != nil {
		return
	}
	histogram.Record(context.Background(), duration.Seconds(), metric.WithAttributes(tagsToAttrs(tags)...))
}

// RecordGauge records a gauge metric value. OTel has no synchronous gauge
// instrument, so this falls back to a histogram, matching the pattern used
// by every OTel-backed metrics wrapper in the pack.
func (m *OTelMetrics) RecordGauge(name string, value float64, tags ...string) {
	histogram, err := m.meter.Float64Histogram(name + "_gauge")
	if err != nil {
		return
	}
	histogram.Record(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}

// Start creates a new span with the given name, returning a derived context
// and the span handle.
func (t *OTelTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	newCtx, span := t.tracer.Start(ctx, name, opts...)
	return newCtx, &otelSpan{span: span}
}

// Span retrieves the current span from the context.
func (t *OTelTracer) Span(ctx context.Context) Span {
	return &otelSpan{span: trace.SpanFromContext(ctx)}
}

// End finalizes the span.
func (s *otelSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }

// AddEvent records a span event with key-value attributes.
func (s *otelSpan) AddEvent(name string, attrs ...any) {
	s.span.AddEvent(name, trace.WithAttributes(kvSliceToAttrs(attrs)...))
}

// SetStatus sets the span status code and description.
func (s *otelSpan) SetStatus(code codes.Code, description string) { s.span.SetStatus(code, description) }

// RecordError records an error on the span.
func (s *otelSpan) RecordError(err error, opts ...trace.EventOption) { s.span.RecordError(err, opts...) }

func tagsToAttrs(tags []string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for i := 0; i < len(tags); i += 2 {
		k := tags[i]
		v := ""
		if i+1 < len(tags) {
			v = tags[i+1]
		}
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

func kvSliceToAttrs(keyvals []any) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		switch v := keyvals[i+1].(type) {
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		default:
			attrs = append(attrs, attribute.String(key, ""))
		}
	}
	return attrs
}
