package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/vendorhub/internal/domain"
)

// TracingPublisher wraps a domain.EventPublisher with OpenTelemetry tracing
// and counts published events by topic and outcome.
type TracingPublisher struct {
	next      domain.EventPublisher
	tracer    trace.Tracer
	published metric.Int64Counter
}

// Compile-time check: TracingPublisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*TracingPublisher)(nil)

// NewTracingPublisher creates a tracing decorator around the given publisher.
func NewTracingPublisher(next domain.EventPublisher) (*TracingPublisher, error) {
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"vendorhub.events.published",
		metric.WithDescription("Vendor change events handed to the queue."),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events counter: %w", err)
	}

	return &TracingPublisher{
		next:      next,
		tracer:    otel.Tracer(instrumentationName),
		published: counter,
	}, nil
}

func (p *TracingPublisher) Publish(ctx context.Context, topic domain.Topic, vendor domain.Vendor) error {
	ctx, span := p.tracer.Start(ctx, "EventPublisher.Publish",
		trace.WithAttributes(
			attribute.String("event.topic", string(topic)),
			attribute.String("vendor.id", vendor.ID),
			attribute.String("vendor.status", string(vendor.Status)),
		),
	)
	defer span.End()

	err := p.next.Publish(ctx, topic, vendor)
	recordError(span, err)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.published.Add(ctx, 1, metric.WithAttributes(
		attribute.String("topic", string(topic)),
		attribute.String("outcome", outcome),
	))
	return err
}
