package features

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("tsbridge.features")
	meter  = otel.Meter("tsbridge.features")
)

var (
	validationTotal metric.Int64Counter
	markersGauge    metric.Int64Histogram

	metricsOnce sync.Once
)

func initMetrics() {
	metricsOnce.Do(func() {
		var err error
		if validationTotal, err = meter.Int64Counter("tsbridge_validation_total",
			metric.WithDescription("Validation runs by outcome")); err != nil {
			otel.Handle(err)
		}
		if markersGauge, err = meter.Int64Histogram("tsbridge_validation_markers",
			metric.WithDescription("Markers published per validation")); err != nil {
			otel.Handle(err)
		}
	})
}

// recordValidation counts a run; outcome is published, discarded or failed.
func recordValidation(ctx context.Context, language, outcome string, markers int) {
	initMetrics()
	attrs := metric.WithAttributes(
		attribute.String("language", language),
		attribute.String("outcome", outcome),
	)
	if validationTotal != nil {
		validationTotal.Add(ctx, 1, attrs)
	}
	if markersGauge != nil && outcome == "published" {
		markersGauge.Record(ctx, int64(markers), metric.WithAttributes(attribute.String("language", language)))
	}
}
