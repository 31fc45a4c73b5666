// Package telemetry installs the OpenTelemetry providers the rest of the
// module records through. Without Setup the global no-op providers stay in
// place and recording costs nothing.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// Config controls telemetry export.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// Writer receives the exported spans and metrics; stderr when nil so
	// command output on stdout stays parseable.
	Writer  io.Writer
	Traces  bool
	Metrics bool
}

// DefaultConfig exports both signals to stderr.
func DefaultConfig(version string) Config {
	return Config{
		ServiceName:    "tsbridge",
		ServiceVersion: version,
		Traces:         true,
		Metrics:        true,
	}
}

// Setup installs stdout exporters as the global providers. The returned
// shutdown flushes them and restores the previous providers.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, errors.New("telemetry: nil context")
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	prevTracer := otel.GetTracerProvider()
	prevMeter := otel.GetMeterProvider()
	var shutdowns []func(context.Context) error

	if cfg.Traces {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		tp := trace.NewTracerProvider(
			trace.WithBatcher(exporter),
			trace.WithResource(res),
			trace.WithSampler(trace.AlwaysSample()),
		)
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	if cfg.Metrics {
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			otel.SetTracerProvider(prevTracer)
			return nil, fmt.Errorf("create metric exporter: %w", err)
		}
		mp := metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(exporter)),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	return func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		otel.SetTracerProvider(prevTracer)
		otel.SetMeterProvider(prevMeter)
		return errors.Join(errs...)
	}, nil
}
