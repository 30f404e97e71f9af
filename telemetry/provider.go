package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// resolveProvider picks the meter provider in this order: the injected one,
// a provider owned by the bridge when an exporter is configured, then the
// global provider.
func (c *Component) resolveProvider(ctx context.Context) (metric.MeterProvider, error) {
	if c.injected != nil {
		c.logger.DebugCtx(ctx, "using injected meter provider")
		return c.injected, nil
	}
	if !c.config.OwnsProvider() {
		c.logger.DebugCtx(ctx, "using global meter provider")
		return otel.GetMeterProvider(), nil
	}

	mp, err := c.createMeterProvider(ctx)
	if err != nil {
		return nil, err
	}
	c.owned = mp
	return mp, nil
}

func (c *Component) createMeterProvider(ctx context.Context) (*sdkmetric.MeterProvider, error) {
	res, err := c.createResource(ctx)
	if err != nil {
		return nil, err
	}
	exporter, err := c.createExporter(ctx)
	if err != nil {
		return nil, err
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{sdkmetric.WithInterval(c.config.ExportInterval)}
	if c.config.ExportTimeout > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithTimeout(c.config.ExportTimeout))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
	)

	c.logger.InfoCtx(ctx, "metric exporter initialized",
		zap.String("exporter_type", c.config.Exporter.Type),
		zap.String("exporter_endpoint", c.config.Exporter.Endpoint),
		zap.Duration("export_interval", c.config.ExportInterval))
	return mp, nil
}
