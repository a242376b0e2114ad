// internal/common/observability/tracing.go
package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wires a tracer provider exporting spans to a Jaeger collector.
// When no collector endpoint is configured, spans are recorded but never
// exported (noop provider).
type Tracing struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

func NewTracing(serviceName, collectorEndpoint string) *Tracing {
	if collectorEndpoint == "" {
		return &Tracing{tracer: otel.Tracer(serviceName)}
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(
		jaeger.WithEndpoint(collectorEndpoint),
	))
	if err != nil {
		log.Printf("Failed to create Jaeger exporter: %v", err)
		return &Tracing{tracer: otel.Tracer(serviceName)}
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)
	otel.SetTracerProvider(provider)

	return &Tracing{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
	}
}

// StartTransition opens a span around one workflow transition.
func (t *Tracing) StartTransition(ctx context.Context, transition, customerID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "workflow."+transition,
		trace.WithAttributes(
			attribute.String("workflow.transition", transition),
			attribute.String("workflow.customer_id", customerID),
		),
	)
}

func (t *Tracing) Shutdown() {
	if t.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.provider.Shutdown(ctx)
	}
}
