package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Config configures the meter provider Setup installs globally.
// ResourceAttrs are attached to every metric this module records; a
// typical value is {"service.name": "my-service"}. There is
// deliberately no exporter endpoint here: this module never talks to a
// network collector on its own, it only registers a MeterProvider a host
// application can read from or attach its own exporter to.
type Config struct {
	ResourceAttrs map[string]string
}

// Setup installs a global MeterProvider backed by a ManualReader, so a
// host application collects metrics by calling the reader rather than by
// this module pushing them anywhere. Callers needing metrics shipped to
// Prometheus, OTLP, or another backend should wrap the returned provider
// with their own periodic reader and exporter; this module does not
// impose one.
func Setup(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader, error) {
	res, err := resource.New(ctx, resource.WithAttributes(buildResourceAttributes(cfg.ResourceAttrs)...))
	if err != nil {
		return nil, nil, fmt.Errorf("metrics: build resource: %w", err)
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	return provider, reader, nil
}

func buildResourceAttributes(attrs map[string]string) []attribute.KeyValue {
	result := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, attribute.String(k, v))
	}
	return result
}

// Shutdown flushes and stops provider, a no-op if provider is nil.
func Shutdown(ctx context.Context, provider *sdkmetric.MeterProvider) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}
