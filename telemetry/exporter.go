package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

// createExporter creates the configured exporter, wrapped in a circuit
// breaker when enabled.
func (c *Component) createExporter(ctx context.Context) (sdkmetric.Exporter, error) {
	primary, err := c.createRawExporter(ctx, c.config.Exporter.Type)
	if err != nil {
		return nil, err
	}
	if !c.config.CircuitBreaker.Enabled {
		return primary, nil
	}

	fallback, err := c.createRawExporter(ctx, c.config.CircuitBreaker.FallbackExporterType)
	if err != nil {
		c.logger.WarnCtx(ctx, "failed to create fallback metric exporter, using noop",
			zap.String("fallback_type", c.config.CircuitBreaker.FallbackExporterType), zap.Error(err))
		fallback = noopExporter{}
	}
	c.circuitBreaker = NewCircuitBreaker(c.config.CircuitBreaker, c.logger, primary, fallback)

	c.logger.InfoCtx(ctx, "circuit breaker enabled for metric exporter",
		zap.Int("failure_threshold", c.config.CircuitBreaker.FailureThreshold),
		zap.Int("success_threshold", c.config.CircuitBreaker.SuccessThreshold),
		zap.Duration("timeout", c.config.CircuitBreaker.Timeout),
		zap.String("fallback_exporter", c.config.CircuitBreaker.FallbackExporterType))
	return c.circuitBreaker, nil
}

func (c *Component) createRawExporter(ctx context.Context, exporterType string) (sdkmetric.Exporter, error) {
	var (
		exp sdkmetric.Exporter
		err error
	)
	switch exporterType {
	case ExporterOTLP:
		exp, err = otlpmetricgrpc.New(ctx, c.grpcOptions()...)
	case ExporterOTLPHTTP:
		exp, err = otlpmetrichttp.New(ctx, c.httpOptions()...)
	case ExporterStdout:
		exp, err = stdoutmetric.New(stdoutmetric.WithWriter(c.stdout), stdoutmetric.WithPrettyPrint())
	case ExporterNoop:
		return noopExporter{}, nil
	default:
		return nil, ErrExporter.WithMsgf("unsupported exporter type %q", exporterType)
	}
	if err != nil {
		return nil, ErrExporter.WithData("type", exporterType).Wrap(err)
	}
	return exp, nil
}

// hasScheme tells a URL endpoint such as http://localhost:4317 from host:port.
func hasScheme(endpoint string) bool {
	return strings.Contains(endpoint, "://")
}

func (c *Component) grpcOptions() []otlpmetricgrpc.Option {
	cfg := c.config.Exporter
	var opts []otlpmetricgrpc.Option
	if hasScheme(cfg.Endpoint) {
		opts = append(opts, otlpmetricgrpc.WithEndpointURL(cfg.Endpoint))
	} else if cfg.Endpoint != "" {
		opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlpmetricgrpc.WithTimeout(cfg.Timeout))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.Headers))
	}
	return opts
}

func (c *Component) httpOptions() []otlpmetrichttp.Option {
	cfg := c.config.Exporter
	var opts []otlpmetrichttp.Option
	if hasScheme(cfg.Endpoint) {
		opts = append(opts, otlpmetrichttp.WithEndpointURL(cfg.Endpoint))
	} else if cfg.Endpoint != "" {
		opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlpmetrichttp.WithTimeout(cfg.Timeout))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}
	return opts
}

// noopExporter drops everything.
type noopExporter struct{}

func (noopExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (noopExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

func (noopExporter) Export(context.Context, *metricdata.ResourceMetrics) error { return nil }
func (noopExporter) ForceFlush(context.Context) error                          { return nil }
func (noopExporter) Shutdown(context.Context) error                            { return nil }
