package supervisor

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"tsbridge/internal/errors"
)

var (
	tracer = otel.Tracer("tsbridge.supervisor")
	meter  = otel.Meter("tsbridge.supervisor")
)

var (
	spawnTotal      metric.Int64Counter
	teardownTotal   metric.Int64Counter
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		if spawnTotal, err = meter.Int64Counter("tsbridge_worker_spawn_total",
			metric.WithDescription("Workers started")); err != nil {
			metricsErr = err
			return
		}
		if teardownTotal, err = meter.Int64Counter("tsbridge_worker_teardown_total",
			metric.WithDescription("Workers stopped, by reason")); err != nil {
			metricsErr = err
			return
		}
		if requestTotal, err = meter.Int64Counter("tsbridge_worker_request_total",
			metric.WithDescription("Worker requests, by method and outcome")); err != nil {
			metricsErr = err
			return
		}
		requestDuration, metricsErr = meter.Float64Histogram("tsbridge_worker_request_duration_seconds",
			metric.WithDescription("Worker request latency"),
			metric.WithUnit("s"))
	})
	return metricsErr
}

func recordSpawn(ctx context.Context, language, mode string, err error) {
	if initMetrics() != nil {
		return
	}
	spawnTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("language", language),
		attribute.String("mode", mode),
		attribute.Bool("success", err == nil),
	))
}

func recordTeardown(ctx context.Context, language, reason string) {
	if initMetrics() != nil {
		return
	}
	teardownTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("language", language),
		attribute.String("reason", reason),
	))
}

func recordRequest(ctx context.Context, method string, started time.Time, err error) {
	if initMetrics() != nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(errors.CodeOf(err))
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	)
	requestTotal.Add(ctx, 1, attrs)
	requestDuration.Record(ctx, time.Since(started).Seconds(), attrs)
}

func startCallSpan(ctx context.Context, workerID, method string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "worker."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("worker.id", workerID),
			attribute.String("rpc.method", method),
		),
	)
}
