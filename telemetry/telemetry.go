// Package telemetry wires up the two ambient observability concerns
// spec.md's expanded scope carries regardless of the planner's own
// Non-goals: structured logging and (optional) distributed tracing.
// Grounded on server/gateway.go's slog.NewJSONHandler + OTel wiring, with
// a real, working InitTracer — teacher's own server/gateway.go calls
// `gateway.InitTracer`, a function that is never actually defined anywhere
// in its tree; this repo closes that gap instead of reproducing it.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/n9te9/federation-planner/config"
)

// NewLogger returns a JSON slog.Logger with a `service` attribute bound in,
// matching teacher's `slog.New(slog.NewJSONHandler(os.Stdout, nil))`
// construction.
func NewLogger(serviceName string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, nil)
	return slog.New(handler).With("service", serviceName)
}

// InitTracer sets up the OTel SDK with an OTLP/HTTP span exporter and
// installs it as the global tracer provider, gated on
// cfg.Tracing.Enabled — matching teacher's intent of only paying for
// tracing when a deployment opts in. When tracing is disabled, it returns
// a no-op shutdown and leaves the global no-op tracer provider in place,
// so callers can unconditionally wrap a span around planner.Build without
// a separate enabled/disabled branch at the call site.
func InitTracer(ctx context.Context, serviceName string, cfg config.OpentelemetrySetting) (func(context.Context) error, error) {
	if !cfg.Tracing.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
	if cfg.Tracing.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Tracing.Endpoint))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build OTLP exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
