// Package tracing owns the process-wide OpenTelemetry tracer provider and
// the context keys that carry trace, user and request identifiers into
// structured log events.
package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	initOnce sync.Once
	tpMu     sync.RWMutex
	tp       *sdktrace.TracerProvider
	initErr  error
)

// InitOpenTelemetry installs a global tracer provider labeled with the
// given service name. Subsequent calls are no-ops returning the first
// call's result.
func InitOpenTelemetry(serviceName string) error {
	initOnce.Do(func() {
		res, err := resource.New(
			context.Background(),
			resource.WithAttributes(
				semconv.ServiceName(serviceName),
			),
		)
		if err != nil {
			initErr = err
			return
		}

		provider := sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(1))),
			sdktrace.WithResource(res),
		)

		tpMu.Lock()
		tp = provider
		tpMu.Unlock()

		otel.SetTracerProvider(provider)
	})

	return initErr
}

// ShutdownOpenTelemetry flushes and shuts down the provider installed by
// InitOpenTelemetry. Safe to call when tracing was never initialized.
func ShutdownOpenTelemetry(ctx context.Context) error {
	tpMu.RLock()
	provider := tp
	tpMu.RUnlock()
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

// StartSpan opens a span on the named tracer and mirrors its trace id into
// the context so log events carry the same id as the span.
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))

	if GetTraceID(ctx) == "" {
		if sc := span.SpanContext(); sc.IsValid() {
			ctx = WithTraceID(ctx, sc.TraceID().String())
		}
	}

	return ctx, span
}
