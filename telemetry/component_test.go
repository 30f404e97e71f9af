package telemetry

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/rhusar/jgroups-opentelemetry/config"
	"github.com/rhusar/jgroups-opentelemetry/logger"
	"github.com/rhusar/jgroups-opentelemetry/protocols"
	"github.com/rhusar/jgroups-opentelemetry/stack"
	"github.com/rhusar/jgroups-opentelemetry/testutil"
)

type testStack struct {
	stack      *stack.Stack
	bridge     *Component
	observable *protocols.Observable
	unicast    *protocols.Unicast3
}

// newTestStack connects loopback, OBSERVABLE, UNICAST3 and the bridge as "node-a" in "demo".
func newTestStack(t *testing.T, opts ...Option) *testStack {
	t.Helper()
	loopback := &protocols.SharedLoopback{}
	ts := &testStack{
		bridge:     NewComponent(opts...),
		observable: &protocols.Observable{},
		unicast:    protocols.NewUnicast3(),
	}
	ts.stack = stack.New(loopback, ts.observable, ts.unicast, ts.bridge)
	loopback.Attach(ts.stack)
	ts.bridge.Attach(ts.stack)
	require.NoError(t, ts.stack.SetName("node-a").Connect("demo"))
	t.Cleanup(ts.stack.Disconnect)
	return ts
}

func (ts *testStack) start(t *testing.T, loader *config.Loader) {
	t.Helper()
	ctx := context.Background()
	if loader == nil {
		require.NoError(t, ts.bridge.Init(ctx, nil))
	} else {
		require.NoError(t, ts.bridge.Init(ctx, loader))
	}
	require.NoError(t, ts.bridge.Start(ctx))
	t.Cleanup(func() { _ = ts.bridge.Stop(ctx) })
}

func histogramConfig() Config {
	cfg := DefaultConfig()
	cfg.EnableMessageSizeHistogram = true
	return cfg
}

func TestComponent_RegistersStackMetrics(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	ts := newTestStack(t, WithMeterProvider(tc.Provider), WithLogger(tc.Logger))
	ts.start(t, nil)

	summary := ts.bridge.Summary()
	assert.Equal(t, 1, summary.Specific)
	assert.Equal(t, 3, summary.Generic)
	assert.Zero(t, summary.Failed)

	ts.stack.Down(stack.NewMessage([]byte("hello")))

	m := tc.Collect(t)
	member := []attribute.KeyValue{attribute.String("cluster", "demo"), attribute.String("node", "node-a")}
	assert.Equal(t, int64(1), m.Int64(t, "jgroups.observable.messages.down", member...))
	assert.Equal(t, int64(1), m.Int64(t, "jgroups.observable.messages.up", member...))
	assert.True(t, m.IsMonotonicSum("jgroups.unicast3.messages.sent"))

	_, ok := m.Get("jgroups.opentelemetry.message.size.sent")
	assert.False(t, ok, "histograms are off by default")
	assert.Equal(t, tc.Provider, ts.bridge.MeterProvider())
}

func TestComponent_MessageSizeHistogram(t *testing.T) {
	tests := []struct {
		name         string
		useTotalSize bool
		want         int64
	}{
		{"payload length", false, 5},
		{"total size", true, 5 + 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := histogramConfig()
			cfg.UseTotalSize = tt.useTotalSize
			tc := testutil.NewMetricsTestContext(t)
			ts := newTestStack(t, WithMeterProvider(tc.Provider), WithLogger(tc.Logger), WithConfig(cfg))
			ts.start(t, nil)

			msg := &stack.BytesMessage{Payload: []byte("hello"), HeaderSize: 12}
			ts.stack.Down(msg)
			ts.stack.Down(msg)

			m := tc.Collect(t)
			for _, name := range []string{"jgroups.opentelemetry.message.size.sent", "jgroups.opentelemetry.message.size.received"} {
				dp := m.Histogram(t, name, attribute.String("node", "node-a"))
				assert.Equal(t, uint64(2), dp.Count, name)
				assert.Equal(t, 2*tt.want, dp.Sum, name)
				assert.Equal(t, "By", m.MustGet(t, name).Unit)
			}
			assert.Equal(t, "Distribution of sent message sizes", m.MustGet(t, "jgroups.opentelemetry.message.size.sent").Description)
			assert.Equal(t, "Distribution of received message sizes", m.MustGet(t, "jgroups.opentelemetry.message.size.received").Description)
		})
	}
}

func TestComponent_ScopeAndConfigurationMetrics(t *testing.T) {
	tests := []struct {
		name   string
		expose bool
	}{
		{"exposed", true},
		{"hidden", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ScopeName = "org.example"
			cfg.ExposeConfigurationMetrics = tt.expose
			tc := testutil.NewMetricsTestContext(t)
			bridge := NewComponent(WithMeterProvider(tc.Provider), WithLogger(tc.Logger), WithConfig(cfg))
			s := stack.New(protocols.NewUFC(), bridge)
			bridge.Attach(s)
			require.NoError(t, s.Connect("demo"))
			require.NoError(t, bridge.Init(context.Background(), nil))
			require.NoError(t, bridge.Start(context.Background()))

			rm := tc.ResourceMetrics(t)
			require.Len(t, rm.ScopeMetrics, 1)
			assert.Equal(t, "org.example", rm.ScopeMetrics[0].Scope.Name)

			m := tc.Collect(t)
			_, ok := m.Get("jgroups.ufc.credits.max")
			assert.Equal(t, tt.expose, ok)
			_, ok = m.Get("jgroups.ufc.blocked")
			assert.True(t, ok)
		})
	}
}

func TestComponent_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	tc := testutil.NewMetricsTestContext(t)
	ts := newTestStack(t, WithMeterProvider(tc.Provider), WithLogger(tc.Logger), WithConfig(cfg))
	ts.start(t, nil)

	ts.stack.Down(stack.NewMessage([]byte("hello")))

	assert.Empty(t, tc.Collect(t))
	assert.False(t, ts.bridge.IsEnabled())
	assert.IsType(t, noop.MeterProvider{}, ts.bridge.MeterProvider())
	assert.Zero(t, ts.bridge.Summary().Total())
}

func TestComponent_StartTwice(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	ts := newTestStack(t, WithMeterProvider(tc.Provider), WithLogger(tc.Logger))
	ts.start(t, nil)

	require.NoError(t, ts.bridge.Start(context.Background()))
	assert.Equal(t, 1, ts.bridge.Summary().Specific)
	assert.Equal(t, 1, tc.Collect(t).Points("jgroups.unicast3.messages.sent"))
}

func TestComponent_NotAttached(t *testing.T) {
	bridge := NewComponent(WithMeterProvider(noop.NewMeterProvider()))
	require.NoError(t, bridge.Init(context.Background(), nil))
	assert.ErrorIs(t, bridge.Start(context.Background()), ErrNotAttached)
}

func TestComponent_StopIdempotent(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	ts := newTestStack(t, WithMeterProvider(tc.Provider), WithLogger(tc.Logger), WithConfig(histogramConfig()))
	ts.start(t, nil)
	ctx := context.Background()

	ts.stack.Down(stack.NewMessage([]byte("abc")))
	require.NoError(t, ts.bridge.Stop(ctx))
	require.NoError(t, ts.bridge.Stop(ctx))

	// injected providers are left running; recording stops
	ts.stack.Down(stack.NewMessage([]byte("abc")))
	dp := tc.Collect(t).Histogram(t, "jgroups.opentelemetry.message.size.sent")
	assert.Equal(t, uint64(1), dp.Count)
}

func TestComponent_GlobalProviderFallback(t *testing.T) {
	bridge := NewComponent()
	require.NoError(t, bridge.Init(context.Background(), nil))

	assert.Equal(t, otel.GetMeterProvider(), bridge.MeterProvider())
	assert.Nil(t, bridge.owned)
	assert.Equal(t, map[string]any{"enabled": false}, bridge.CircuitBreakerStats())
}

func TestComponent_OwnedStdoutProvider(t *testing.T) {
	var out bytes.Buffer
	cfg := histogramConfig()
	cfg.Exporter.Type = ExporterStdout
	cfg.CircuitBreaker.Enabled = true

	ts := newTestStack(t, WithConfig(cfg), WithStdout(&out))
	ctx := context.Background()
	require.NoError(t, ts.bridge.Init(ctx, nil))
	require.NotNil(t, ts.bridge.owned)
	require.NotNil(t, ts.bridge.CircuitBreaker())
	assert.Equal(t, true, ts.bridge.CircuitBreakerStats()["enabled"])

	require.NoError(t, ts.bridge.Start(ctx))
	ts.stack.Down(stack.NewMessage([]byte("hello")))

	// shutdown flushes the periodic reader through the stdout exporter
	require.NoError(t, ts.bridge.Stop(ctx))
	assert.Contains(t, out.String(), "jgroups.opentelemetry.message.size.sent")
	assert.Contains(t, out.String(), "jgroups.observable.messages.up")
	assert.Equal(t, StateClosed, ts.bridge.CircuitBreaker().State())
}

func TestComponent_StdoutExporterDefaultsToStdout(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = stdout })

	cfg := DefaultConfig()
	cfg.Exporter.Type = ExporterStdout
	ts := newTestStack(t, WithConfig(cfg), WithLogger(logger.Nop()))
	os.Stdout = stdout

	written := make(chan string, 1)
	go func() {
		b, _ := io.ReadAll(r)
		written <- string(b)
	}()

	ts.start(t, nil)
	ts.stack.Down(stack.NewMessage([]byte("hello")))
	require.NoError(t, ts.bridge.Stop(context.Background()))
	require.NoError(t, w.Close())

	assert.Contains(t, <-written, "jgroups.observable.messages.up")
}

func TestComponent_ReinitShutsDownOwnedProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exporter.Type = ExporterStdout
	cfg.CircuitBreaker.Enabled = true
	ts := newTestStack(t, WithConfig(cfg), WithStdout(io.Discard))
	ctx := context.Background()
	t.Cleanup(func() { _ = ts.bridge.Stop(ctx) })

	require.NoError(t, ts.bridge.Init(ctx, nil))
	first := ts.bridge.owned
	require.NotNil(t, first)

	require.NoError(t, ts.bridge.Init(ctx, nil))
	assert.NotSame(t, first, ts.bridge.owned)
	assert.NotNil(t, ts.bridge.CircuitBreaker())
	assert.ErrorIs(t, first.Shutdown(ctx), sdkmetric.ErrReaderShutdown, "the first provider is already shut down")
}

func TestComponent_InitFromConfigFiles(t *testing.T) {
	dir := t.TempDir()
	yaml := `
opentelemetry:
  scope_name: org.example.cluster
  expose_configuration_metrics: false
  enable_message_size_histogram: true
  export_interval: 5s
  resource_attributes:
    deployment:
      environment: test
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("APP_ENV", "test")
	t.Setenv("JGROUPS_OPENTELEMETRY_USE_TOTAL_SIZE", "true")

	loader, err := config.NewLoaderBuilder().
		WithConfigPath(dir).
		WithEnvPrefix(EnvPrefix).
		WithEnvBindings(EnvBindings()).
		Build()
	require.NoError(t, err)

	tc := testutil.NewMetricsTestContext(t)
	ts := newTestStack(t, WithMeterProvider(tc.Provider), WithLogger(tc.Logger))
	ts.start(t, loader)

	cfg := ts.bridge.Config()
	assert.Equal(t, "org.example.cluster", cfg.ScopeName)
	assert.False(t, cfg.ExposeConfigurationMetrics)
	assert.True(t, cfg.EnableMessageSizeHistogram)
	assert.True(t, cfg.UseTotalSize)
	assert.Equal(t, "5s", cfg.ExportInterval.String())
	assert.Equal(t, map[string]any{"environment": "test"}, cfg.ResourceAttrs["deployment"])
	// keys absent from the file keep their defaults
	assert.Equal(t, "jgroups", cfg.ServiceName)
	assert.Equal(t, ExporterOTLP, cfg.Exporter.Type)

	ts.stack.Down(stack.NewMessage([]byte("hello")))
	m := tc.Collect(t)
	assert.Equal(t, int64(5), m.Histogram(t, "jgroups.opentelemetry.message.size.sent").Sum)
}

func TestComponent_InitRejectsInvalidConfig(t *testing.T) {
	t.Setenv("JGROUPS_OPENTELEMETRY_EXPORTER_TYPE", "zipkin")
	loader, err := config.NewLoaderBuilder().
		WithEnvPrefix(EnvPrefix).
		WithEnvBindings(EnvBindings()).
		Build()
	require.NoError(t, err)

	bridge := NewComponent()
	err = bridge.Init(context.Background(), loader)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, ExporterOTLP, bridge.Config().Exporter.Type)
}

func TestComponent_Identity(t *testing.T) {
	bridge := NewComponent()
	assert.Equal(t, "opentelemetry", bridge.Name())
	assert.Equal(t, []string{"config", "logger"}, bridge.DependsOn())
	assert.Equal(t, stack.TypeID("org.jgroups.protocols.opentelemetry.OPENTELEMETRY"), bridge.TypeID())
	assert.Equal(t, "OPENTELEMETRY", bridge.TypeID().Name())
}
