// Package testutil collects metrics and log entries in memory for tests.
package testutil

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rhusar/jgroups-opentelemetry/logger"
)

// MetricsTestContext bundles an SDK meter provider backed by a manual
// reader with an observed logger.
//
//	tc := testutil.NewMetricsTestContext(t)
//	registrar := instrumentation.NewRegistrar(catalog, instrumentation.WithLogger(tc.Logger))
//	registrar.Register(ctx, tc.Provider, protocols, opts)
//	m := tc.Collect(t)
//	assert.Equal(t, int64(3), m.Int64(t, "jgroups.unicast3.messages.sent"))
type MetricsTestContext struct {
	Provider *sdkmetric.MeterProvider
	Reader   *sdkmetric.ManualReader
	Logger   *logger.CtxZapLogger
	Logs     *observer.ObservedLogs
}

// NewMetricsTestContext returns a context whose provider is shut down when the test ends.
func NewMetricsTestContext(tb testing.TB) *MetricsTestContext {
	tb.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	log, logs := logger.NewTestLogger()
	tb.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})
	return &MetricsTestContext{
		Provider: mp,
		Reader:   reader,
		Logger:   log,
		Logs:     logs,
	}
}

// ResourceMetrics runs one collection.
func (c *MetricsTestContext) ResourceMetrics(tb testing.TB) metricdata.ResourceMetrics {
	tb.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(tb, c.Reader.Collect(context.Background(), &rm))
	return rm
}

// Collect reads every metric of every scope.
func (c *MetricsTestContext) Collect(tb testing.TB) Metrics {
	tb.Helper()
	var out Metrics
	for _, sm := range c.ResourceMetrics(tb).ScopeMetrics {
		out = append(out, sm.Metrics...)
	}
	return out
}

// Metrics is one collection.
type Metrics []metricdata.Metrics

// Names returns the sorted metric names.
func (m Metrics) Names() []string {
	names := make([]string, 0, len(m))
	for _, md := range m {
		names = append(names, md.Name)
	}
	slices.Sort(names)
	return names
}

func (m Metrics) Get(name string) (metricdata.Metrics, bool) {
	for _, md := range m {
		if md.Name == name {
			return md, true
		}
	}
	return metricdata.Metrics{}, false
}

// MustGet fails the test when name was not collected.
func (m Metrics) MustGet(tb testing.TB, name string) metricdata.Metrics {
	tb.Helper()
	md, ok := m.Get(name)
	require.Truef(tb, ok, "metric %q not collected, got %v", name, m.Names())
	return md
}

// Points returns the number of data points of name, 0 when absent.
func (m Metrics) Points(name string) int {
	md, ok := m.Get(name)
	if !ok {
		return 0
	}
	switch d := md.Data.(type) {
	case metricdata.Gauge[int64]:
		return len(d.DataPoints)
	case metricdata.Gauge[float64]:
		return len(d.DataPoints)
	case metricdata.Sum[int64]:
		return len(d.DataPoints)
	case metricdata.Histogram[int64]:
		return len(d.DataPoints)
	}
	return 0
}

// Int64 returns the value of the single integer data point of name
// carrying attrs. Attributes not listed are ignored.
func (m Metrics) Int64(tb testing.TB, name string, attrs ...attribute.KeyValue) int64 {
	tb.Helper()
	md := m.MustGet(tb, name)
	var points []metricdata.DataPoint[int64]
	switch d := md.Data.(type) {
	case metricdata.Gauge[int64]:
		points = d.DataPoints
	case metricdata.Sum[int64]:
		points = d.DataPoints
	default:
		require.Failf(tb, "unexpected data type", "metric %q holds %T", name, md.Data)
	}
	var found []int64
	for _, dp := range points {
		if hasAttributes(dp.Attributes, attrs) {
			found = append(found, dp.Value)
		}
	}
	require.Lenf(tb, found, 1, "metric %q: data points matching %v", name, attrs)
	return found[0]
}

// Float64 returns the value of the single floating point gauge data point of name.
func (m Metrics) Float64(tb testing.TB, name string, attrs ...attribute.KeyValue) float64 {
	tb.Helper()
	md := m.MustGet(tb, name)
	d, ok := md.Data.(metricdata.Gauge[float64])
	require.Truef(tb, ok, "metric %q holds %T", name, md.Data)
	var found []float64
	for _, dp := range d.DataPoints {
		if hasAttributes(dp.Attributes, attrs) {
			found = append(found, dp.Value)
		}
	}
	require.Lenf(tb, found, 1, "metric %q: data points matching %v", name, attrs)
	return found[0]
}

// Histogram returns the single histogram data point of name.
func (m Metrics) Histogram(tb testing.TB, name string, attrs ...attribute.KeyValue) metricdata.HistogramDataPoint[int64] {
	tb.Helper()
	md := m.MustGet(tb, name)
	d, ok := md.Data.(metricdata.Histogram[int64])
	require.Truef(tb, ok, "metric %q holds %T", name, md.Data)
	var found []metricdata.HistogramDataPoint[int64]
	for _, dp := range d.DataPoints {
		if hasAttributes(dp.Attributes, attrs) {
			found = append(found, dp)
		}
	}
	require.Lenf(tb, found, 1, "metric %q: data points matching %v", name, attrs)
	return found[0]
}

// IsMonotonicSum reports whether name was collected as a monotonic sum.
func (m Metrics) IsMonotonicSum(name string) bool {
	md, ok := m.Get(name)
	if !ok {
		return false
	}
	s, ok := md.Data.(metricdata.Sum[int64])
	return ok && s.IsMonotonic
}

// IsGauge reports whether name was collected as a gauge.
func (m Metrics) IsGauge(name string) bool {
	md, ok := m.Get(name)
	if !ok {
		return false
	}
	switch md.Data.(type) {
	case metricdata.Gauge[int64], metricdata.Gauge[float64]:
		return true
	}
	return false
}

func hasAttributes(set attribute.Set, attrs []attribute.KeyValue) bool {
	for _, kv := range attrs {
		v, ok := set.Value(kv.Key)
		if !ok || v.Emit() != kv.Value.Emit() {
			return false
		}
	}
	return true
}
