package otel_test

import (
	"context"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	adapter "github.com/neomorfeo/vendorhub/internal/adapter/otel"
	"github.com/neomorfeo/vendorhub/internal/domain"
)

// --- Mock publishers ---

type mockPublisher struct {
	events []publishedEvent
}

type publishedEvent struct {
	topic  domain.Topic
	vendor domain.Vendor
}

func (m *mockPublisher) Publish(_ context.Context, topic domain.Topic, v domain.Vendor) error {
	m.events = append(m.events, publishedEvent{topic: topic, vendor: v})
	return nil
}

type failingPublisher struct{}

func (p *failingPublisher) Publish(_ context.Context, _ domain.Topic, _ domain.Vendor) error {
	return fmt.Errorf("publish failed")
}

func setupTestMeter(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader
}

func newTracingPublisher(t *testing.T, next domain.EventPublisher) *adapter.TracingPublisher {
	t.Helper()
	pub, err := adapter.NewTracingPublisher(next)
	if err != nil {
		t.Fatalf("NewTracingPublisher failed: %v", err)
	}
	return pub
}

// publishedCount sums the events counter for the given outcome.
func publishedCount(t *testing.T, reader *sdkmetric.ManualReader, outcome string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collecting metrics: %v", err)
	}

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "vendorhub.events.published" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric data type = %T, want Sum[int64]", m.Data)
			}
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value(attribute.Key("outcome")); ok && v.AsString() == outcome {
					total += dp.Value
				}
			}
		}
	}
	return total
}

// --- Tests ---

func TestTracingPublisher_Publish_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	setupTestMeter(t)
	inner := &mockPublisher{}
	pub := newTracingPublisher(t, inner)

	if err := pub.Publish(context.Background(), domain.TopicVendorAdded, testVendor("v-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "EventPublisher.Publish" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "EventPublisher.Publish")
	}

	assertAttribute(t, spans[0], "event.topic", "vendor_added")
	assertAttribute(t, spans[0], "vendor.id", "v-1")
	assertAttribute(t, spans[0], "vendor.status", "active")

	if len(inner.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(inner.events))
	}
}

func TestTracingPublisher_Publish_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	setupTestMeter(t)
	pub := newTracingPublisher(t, &failingPublisher{})

	err := pub.Publish(context.Background(), domain.TopicVendorAdded, testVendor("v-1"))
	if err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}

func TestTracingPublisher_CountsOutcomes(t *testing.T) {
	setupTestTracer(t)
	reader := setupTestMeter(t)
	ok := newTracingPublisher(t, &mockPublisher{})
	failing := newTracingPublisher(t, &failingPublisher{})
	ctx := context.Background()

	_ = ok.Publish(ctx, domain.TopicVendorAdded, testVendor("v-1"))
	_ = ok.Publish(ctx, domain.TopicVendorStatusChanged, testVendor("v-1"))
	_ = failing.Publish(ctx, domain.TopicVendorUpdated, testVendor("v-1"))

	if got := publishedCount(t, reader, "ok"); got != 2 {
		t.Errorf("ok count = %d, want 2", got)
	}
	if got := publishedCount(t, reader, "error"); got != 1 {
		t.Errorf("error count = %d, want 1", got)
	}
}
