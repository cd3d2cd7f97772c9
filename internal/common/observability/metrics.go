// internal/common/observability/metrics.go
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
	meterProvider      *metric.MeterProvider
	meter              otelmetric.Meter
	stepCounter        otelmetric.Int64Counter
	enrichmentCounter  otelmetric.Int64Counter
	enrichmentDuration otelmetric.Float64Histogram
	submissionCounter  otelmetric.Int64Counter
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

	stepCounter, _ := meter.Int64Counter(
		"funnel.steps",
		otelmetric.WithDescription("Number of wizard step transitions"),
	)

	enrichmentCounter, _ := meter.Int64Counter(
		"funnel.enrichments",
		otelmetric.WithDescription("Number of enrichment calls by kind and outcome"),
	)

	enrichmentDuration, _ := meter.Float64Histogram(
		"funnel.enrichment.duration",
		otelmetric.WithDescription("Enrichment call duration"),
		otelmetric.WithUnit("ms"),
	)

	submissionCounter, _ := meter.Int64Counter(
		"funnel.submissions",
		otelmetric.WithDescription("Number of lead submissions by true outcome"),
	)

	return &Observability{
		meterProvider:      provider,
		meter:              meter,
		stepCounter:        stepCounter,
		enrichmentCounter:  enrichmentCounter,
		enrichmentDuration: enrichmentDuration,
		submissionCounter:  submissionCounter,
	}
}

func (o *Observability) RecordStep(ctx context.Context, direction string, step int) {
	if o.stepCounter != nil {
		o.stepCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("direction", direction),
			attribute.Int("step", step),
		))
	}
}

func (o *Observability) RecordEnrichment(ctx context.Context, kind, outcome string, duration time.Duration) {
	if o.enrichmentCounter != nil {
		o.enrichmentCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome),
		))
	}
	if o.enrichmentDuration != nil {
		o.enrichmentDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome),
		))
	}
}

// RecordSubmission records the true submission outcome. This is the only
// place the real result goes; the user always sees success.
func (o *Observability) RecordSubmission(ctx context.Context, outcome string) {
	if o.submissionCounter != nil {
		o.submissionCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
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
