package observability

import (
	"context"
	"gatekeeper/internal/models"
	"gatekeeper/internal/signals"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "gatekeeper/signals"

// InstrumentedStore wraps a signals.Store with a span, a latency histogram
// and an error counter per call. Identity hashes are not attached to spans;
// only the dimension and action are.
type InstrumentedStore struct {
	inner    signals.Store
	backend  string
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedStore wraps inner. backend names the store type in telemetry.
func NewInstrumentedStore(inner signals.Store, backend string) (*InstrumentedStore, error) {
	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram(
		"signals.operation.duration",
		metric.WithDescription("Duration of signal store operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"signals.operation.errors",
		metric.WithDescription("Number of signal store operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStore{
		inner:    inner,
		backend:  backend,
		tracer:   otel.Tracer(instrumentationName),
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStore) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	base := []attribute.KeyValue{
		attribute.String("signals.operation", operation),
		attribute.String("signals.backend", s.backend),
	}
	return s.tracer.Start(ctx, "signals."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(base, attrs...)...),
	)
}

func (s *InstrumentedStore) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("backend", s.backend),
	)
	s.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (s *InstrumentedStore) LatestAbuseEvent(ctx context.Context, dim models.Dimension, hash string) (*models.AbuseEvent, error) {
	ctx, span := s.startSpan(ctx, "LatestAbuseEvent", attribute.String("dimension", string(dim)))
	start := time.Now()
	event, err := s.inner.LatestAbuseEvent(ctx, dim, hash)
	if event != nil {
		span.SetAttributes(attribute.String("risk_label", string(event.RiskLabel)))
	}
	s.record(ctx, span, "LatestAbuseEvent", start, err)
	return event, err
}

func (s *InstrumentedStore) UsageInWindow(ctx context.Context, dim models.Dimension, hash, action string, since time.Time) (models.UsageWindow, error) {
	ctx, span := s.startSpan(ctx, "UsageInWindow",
		attribute.String("dimension", string(dim)),
		attribute.String("action", action),
	)
	start := time.Now()
	window, err := s.inner.UsageInWindow(ctx, dim, hash, action, since)
	span.SetAttributes(attribute.Int("usage.count", window.Count))
	s.record(ctx, span, "UsageInWindow", start, err)
	return window, err
}

func (s *InstrumentedStore) AppendUsageEvent(ctx context.Context, event *models.UsageEvent) error {
	ctx, span := s.startSpan(ctx, "AppendUsageEvent", attribute.String("action", event.Action))
	start := time.Now()
	err := s.inner.AppendUsageEvent(ctx, event)
	s.record(ctx, span, "AppendUsageEvent", start, err)
	return err
}

func (s *InstrumentedStore) AppendAbuseEvent(ctx context.Context, event *models.AbuseEvent) error {
	ctx, span := s.startSpan(ctx, "AppendAbuseEvent", attribute.String("risk_label", string(event.RiskLabel)))
	start := time.Now()
	err := s.inner.AppendAbuseEvent(ctx, event)
	s.record(ctx, span, "AppendAbuseEvent", start, err)
	return err
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping")
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.record(ctx, span, "Ping", start, err)
	return err
}

func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}
