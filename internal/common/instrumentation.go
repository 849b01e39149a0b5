package common

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	metric2 "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

const meterName = "github.com/ogero/stremio-cartoony"

// Instruments are created against the global meter provider, which delegates to the
// real provider once InitInstrumentation registers it.
var (
	// CacheGetsTotal counts cache lookups by key prefix and hit/miss result.
	CacheGetsTotal metric2.Int64Counter
	// ScrapesTotal counts site scrapes by operation and outcome.
	ScrapesTotal metric2.Int64Counter
	// StreamsResolvedTotal counts stream links returned to Stremio.
	StreamsResolvedTotal metric2.Int64Counter
)

func init() {
	if err := createCustomMeters(); err != nil {
		panic(err)
	}
}

// InitInstrumentation setups otel
func InitInstrumentation(serviceName, serviceVersion, serviceEnvironment, exporterEndpoint string) (func(ctx context.Context), error) {

	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
			semconv.DeploymentEnvironmentName(serviceEnvironment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to merge otel resource: %w", err)
	}

	// Metric exporter
	metricExporter, err := otlpmetricgrpc.New(
		context.Background(),
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithEndpoint(exporterEndpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	// Metric periodic reader
	metricPeriodicReader := metric.NewPeriodicReader(metricExporter, metric.WithInterval(30*time.Second))

	// Metric provider
	metricsProvider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metricPeriodicReader),
	)

	// Register metric provider
	otel.SetMeterProvider(metricsProvider)

	// Trace exporter
	traceExporter, err := otlptracegrpc.New(
		context.Background(),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(exporterEndpoint),
	)
	if err != nil {
		_ = metricsProvider.Shutdown(context.Background())
		_ = metricExporter.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	// Trace provider
	traceProvider := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter),
		trace.WithResource(res),
	)

	// Register trace provider
	otel.SetTracerProvider(traceProvider)

	propagator := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(propagator)

	return func(ctx context.Context) {
		_ = metricsProvider.Shutdown(ctx)
		_ = metricExporter.Shutdown(ctx)
		_ = traceProvider.Shutdown(ctx)
		_ = traceExporter.Shutdown(ctx)
	}, nil
}

func createCustomMeters() error {
	meter := otel.Meter(meterName)
	var err error

	CacheGetsTotal, err = meter.Int64Counter("cache_gets_total",
		metric2.WithDescription("Cache lookups by key prefix and result"))
	if err != nil {
		return fmt.Errorf("failed to create custom meter: %w", err)
	}

	ScrapesTotal, err = meter.Int64Counter("scrapes_total",
		metric2.WithDescription("Cartoony scrapes by operation and result"))
	if err != nil {
		return fmt.Errorf("failed to create custom meter: %w", err)
	}

	StreamsResolvedTotal, err = meter.Int64Counter("streams_resolved_total",
		metric2.WithDescription("Stream links returned to Stremio"))
	if err != nil {
		return fmt.Errorf("failed to create custom meter: %w", err)
	}

	return nil
}
