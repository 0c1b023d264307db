package payloadstore

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "wealth/payloadstore"

// Traced wraps a Store and records one span per Put/Get.
type Traced struct {
	next    Store
	backend string
	tracer  trace.Tracer
}

// TracedOption configures the Traced decorator.
type TracedOption func(*Traced)

// WithTracer injects a tracer instead of the global provider's.
func WithTracer(t trace.Tracer) TracedOption {
	return func(s *Traced) {
		s.tracer = t
	}
}

// NewTraced decorates next; backend names the store in span attributes.
func NewTraced(next Store, backend string, opts ...TracedOption) *Traced {
	s := &Traced{next: next, backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(instrumentationName)
	}
	return s
}

func (s *Traced) Put(ctx context.Context, key string, value []byte) error {
	ctx, span := s.tracer.Start(ctx, "payloadstore.put", trace.WithAttributes(
		attribute.String("payloadstore.backend", s.backend),
		attribute.String("payloadstore.key", key),
		attribute.Int("payloadstore.bytes", len(value)),
	))
	err := s.next.Put(ctx, key, value)
	endSpan(span, err)
	return err
}

func (s *Traced) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "payloadstore.get", trace.WithAttributes(
		attribute.String("payloadstore.backend", s.backend),
		attribute.String("payloadstore.key", key),
	))
	value, err := s.next.Get(ctx, key)
	if err == nil {
		span.SetAttributes(attribute.Int("payloadstore.bytes", len(value)))
	}
	endSpan(span, err)
	return value, err
}

func endSpan(span trace.Span, err error) {
	if err != nil && !IsNotFound(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if IsNotFound(err) {
		span.AddEvent("not_found")
	}
	span.End()
}

var _ Store = (*Traced)(nil)
