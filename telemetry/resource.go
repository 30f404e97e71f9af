package telemetry

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// createResource describes the node exporting the metrics.
func (c *Component) createResource(ctx context.Context) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(resourceAttributes(c.config)...),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, ErrResource.Wrap(err)
	}
	return res, nil
}

// resourceAttributes returns the service attributes followed by the custom
// ones in key order. Nested maps become dotted keys and string values
// expand environment variables:
//
//	deployment: {environment: ${ENV}} -> deployment.environment=<value of $ENV>
func resourceAttributes(cfg Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	return appendResourceAttrs(attrs, "", cfg.ResourceAttrs)
}

func appendResourceAttrs(attrs []attribute.KeyValue, prefix string, m map[string]any) []attribute.KeyValue {
	for _, key := range slices.Sorted(maps.Keys(m)) {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		switch v := m[key].(type) {
		case map[string]any:
			attrs = appendResourceAttrs(attrs, name, v)
		case string:
			attrs = append(attrs, attribute.String(name, os.ExpandEnv(v)))
		default:
			attrs = append(attrs, attribute.String(name, fmt.Sprint(v)))
		}
	}
	return attrs
}
