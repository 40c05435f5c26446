// Package telemetry wires the OTLP trace exporter. Tracing is opt-in:
// without OTEL_EXPORTER_OTLP_ENDPOINT the server runs untraced and the
// gin/http instrumentation middlewares are simply not installed.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/videobuds/backend/internal/config"
)

// ServiceName labels every span this process emits.
const ServiceName = "videobuds-backend"

// Init builds and registers the global tracer provider from app config.
// Returns (nil, nil) when no OTLP endpoint is configured; callers skip
// the tracing middleware and the shutdown hook in that case.
//
// Production typically samples. Generation traffic is low-volume and
// each span carries provider latency we actually want, so everything
// under a sampled parent is kept and root spans are sampled at the
// given rate.
func Init(cfg *config.Config, samplingRate float64) (*sdktrace.TracerProvider, error) {
	if cfg.OTLPEndpoint == "" {
		return nil, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Collector endpoints are in-cluster, plain HTTP.
	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(
			sdktrace.TraceIDRatioBased(samplingRate),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}
