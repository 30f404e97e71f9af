package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/rhusar/jgroups-opentelemetry/logger"
	"github.com/rhusar/jgroups-opentelemetry/observability"
)

// Helper registers prefixed instruments whose readings carry the context attributes.
//
// Registration failures do not stop sibling registrations; they are logged
// and collected in Err.
//
//	h := ctx.Helper()
//	h.RegisterCounter("messages.sent", "Total number of unicast messages sent",
//		observability.Messages, p.MessagesSent)
//	return h.Err()
type Helper struct {
	meter            metric.Meter
	prefix           string
	attrs            metric.MeasurementOption
	countersAsGauges bool
	log              *logger.CtxZapLogger

	registered int
	errs       []error
}

func newHelper(c *Context) *Helper {
	return &Helper{
		meter:            c.Meter,
		prefix:           c.Prefix,
		attrs:            metric.WithAttributeSet(c.Attributes),
		countersAsGauges: c.CountersAsGauges,
		log:              c.log(),
	}
}

// RegisterGauge registers an asynchronous integer gauge.
func (h *Helper) RegisterGauge(name, description string, unit observability.Unit, read func() int64) {
	full := h.prefix + name
	_, err := h.meter.Int64ObservableGauge(full,
		metric.WithDescription(description),
		metric.WithUnit(unit.UCUM()),
		metric.WithInt64Callback(h.int64Callback(full, read)),
	)
	h.done(full, err)
}

// RegisterBoolGauge registers a gauge reading 1 when read returns true, 0 otherwise.
func (h *Helper) RegisterBoolGauge(name, description string, unit observability.Unit, read func() bool) {
	h.RegisterGauge(name, description, unit, func() int64 { return boolToInt64(read()) })
}

// RegisterDoubleGauge registers an asynchronous floating point gauge.
// NaN and infinite readings are reported as 0.
func (h *Helper) RegisterDoubleGauge(name, description string, unit observability.Unit, read func() float64) {
	full := h.prefix + name
	attrs, log := h.attrs, h.log
	_, err := h.meter.Float64ObservableGauge(full,
		metric.WithDescription(description),
		metric.WithUnit(unit.UCUM()),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			o.Observe(safeFloat64(full, read, log), attrs)
			return nil
		}),
	)
	h.done(full, err)
}

// RegisterCounter registers an asynchronous monotonic counter, or a gauge
// when the context asks for counters as gauges.
func (h *Helper) RegisterCounter(name, description string, unit observability.Unit, read func() int64) {
	if h.countersAsGauges {
		h.RegisterGauge(name, description, unit, read)
		return
	}
	full := h.prefix + name
	_, err := h.meter.Int64ObservableCounter(full,
		metric.WithDescription(description),
		metric.WithUnit(unit.UCUM()),
		metric.WithInt64Callback(h.int64Callback(full, read)),
	)
	h.done(full, err)
}

// RegisterUpDownCounter registers an asynchronous up-down counter, or a gauge
// when the context asks for counters as gauges.
func (h *Helper) RegisterUpDownCounter(name, description string, unit observability.Unit, read func() int64) {
	if h.countersAsGauges {
		h.RegisterGauge(name, description, unit, read)
		return
	}
	full := h.prefix + name
	_, err := h.meter.Int64ObservableUpDownCounter(full,
		metric.WithDescription(description),
		metric.WithUnit(unit.UCUM()),
		metric.WithInt64Callback(h.int64Callback(full, read)),
	)
	h.done(full, err)
}

// RegisterHistogram registers a synchronous histogram. Values are recorded
// inline through the returned handle. It never returns nil.
func (h *Helper) RegisterHistogram(name, description string, unit observability.Unit) *Histogram {
	full := h.prefix + name
	hist, err := h.meter.Int64Histogram(full,
		metric.WithDescription(description),
		metric.WithUnit(unit.UCUM()),
	)
	h.done(full, err)
	if err != nil {
		return &Histogram{}
	}
	return &Histogram{hist: hist, attrs: h.attrs}
}

// Registered returns the number of instruments registered so far.
func (h *Helper) Registered() int {
	return h.registered
}

// Err returns the joined registration errors, or nil.
func (h *Helper) Err() error {
	if len(h.errs) == 0 {
		return nil
	}
	return ErrRegistration.Wrap(errors.Join(h.errs...))
}

func (h *Helper) done(name string, err error) {
	if err != nil {
		h.log.Warn("failed to register metric", zap.String("metric", name), zap.Error(err))
		h.errs = append(h.errs, fmt.Errorf("register %s: %w", name, err))
		return
	}
	h.registered++
}

func (h *Helper) int64Callback(name string, read func() int64) metric.Int64Callback {
	attrs, log := h.attrs, h.log
	return func(_ context.Context, o metric.Int64Observer) error {
		o.Observe(safeInt64(name, read, log), attrs)
		return nil
	}
}

// Histogram is a synchronous histogram stamping the context attributes.
type Histogram struct {
	hist  metric.Int64Histogram
	attrs metric.MeasurementOption
}

// Record records v. It is a no-op when registration failed.
func (h *Histogram) Record(ctx context.Context, v int64) {
	if h == nil || h.hist == nil {
		return
	}
	h.hist.Record(ctx, v, h.attrs)
}

func safeInt64(name string, read func() int64, log *logger.CtxZapLogger) (v int64) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug("metric read failed", zap.String("metric", name), zap.Any("panic", r))
			v = 0
		}
	}()
	return read()
}

func safeFloat64(name string, read func() float64, log *logger.CtxZapLogger) (v float64) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug("metric read failed", zap.String("metric", name), zap.Any("panic", r))
			v = 0
		}
	}()
	v = read()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
