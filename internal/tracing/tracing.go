// Package tracing wires OpenTelemetry spans for pipeline runs, category
// tasks and provider attempts. Spans are no-ops until Init enables them.
package tracing

import (
	"context"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config controls the tracer
type Config struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	PrettyPrint bool   `mapstructure:"pretty_print"`
}

var (
	mu             sync.RWMutex
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	enabled        bool
)

// Init installs a stdout exporter. Spans go to w, or stdout when w is nil.
func Init(cfg Config, version string, w io.Writer) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "signalforge"
	}

	var opts []stdouttrace.Option
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	if w != nil {
		opts = append(opts, stdouttrace.WithWriter(w))
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	tracer = otel.Tracer(cfg.ServiceName)
	enabled = true
	return nil
}

// Shutdown flushes pending spans
func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()
	enabled = false
	if tracerProvider != nil {
		err := tracerProvider.Shutdown(ctx)
		tracerProvider = nil
		tracer = nil
		return err
	}
	return nil
}

// StartSpan starts a span, or returns the span already in ctx when disabled
func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	mu.RLock()
	t, on := tracer, enabled
	mu.RUnlock()
	if !on || t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.Start(ctx, spanName, opts...)
}

// Enabled reports whether spans are recorded
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Fields returns trace and span ids for structured logs
func Fields(ctx context.Context) []zap.Field {
	if !Enabled() {
		return nil
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
