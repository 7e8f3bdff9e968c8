package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	sagaCounter   otelmetric.Int64Counter
	sagaDuration  otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	sagaCounter, _ := meter.Int64Counter(
		"sagas.processed",
		otelmetric.WithDescription("Number of mandate setup sagas processed"),
	)

	sagaDuration, _ := meter.Float64Histogram(
		"sagas.duration",
		otelmetric.WithDescription("Mandate setup saga duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		sagaCounter:   sagaCounter,
		sagaDuration:  sagaDuration,
	}
}

func (o *Observability) RecordSagaProcessed(ctx context.Context, status string) {
	if o.sagaCounter != nil {
		o.sagaCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordSagaDuration(ctx context.Context, duration time.Duration, status string) {
	if o.sagaDuration != nil {
		o.sagaDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
