// Package telemetry is the OPENTELEMETRY protocol: the bridge that exposes
// the metrics of every protocol in its stack through OpenTelemetry.
//
// The bridge sits in the stack like any other protocol. Init loads its
// configuration and resolves a meter provider, Start registers the
// instrumentation of the stack's protocols and Stop releases what the
// bridge created.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"github.com/rhusar/jgroups-opentelemetry/component"
	"github.com/rhusar/jgroups-opentelemetry/instrumentation"
	"github.com/rhusar/jgroups-opentelemetry/instruments"
	"github.com/rhusar/jgroups-opentelemetry/logger"
	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

const (
	ComponentName = component.ComponentOpenTelemetry

	TypeOpenTelemetry stack.TypeID = stack.RootNamespace + "opentelemetry.OPENTELEMETRY"

	// histogramPrefix names the bridge's own instruments.
	histogramPrefix = "jgroups.opentelemetry."
)

var (
	_ component.Component = (*Component)(nil)
	_ stack.Protocol      = (*Component)(nil)
	_ stack.UpHandler     = (*Component)(nil)
	_ stack.DownHandler   = (*Component)(nil)
)

// Option configures a Component.
type Option func(*Component)

// WithMeterProvider injects the meter provider, bypassing the configured exporter.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Component) {
		c.injected = mp
	}
}

func WithLogger(l *logger.CtxZapLogger) Option {
	return func(c *Component) {
		c.logger = l
	}
}

// WithCatalog replaces the process-wide instruments catalog.
func WithCatalog(catalog *instrumentation.Catalog) Option {
	return func(c *Component) {
		c.catalog = catalog
	}
}

// WithConfig sets the configuration the loader's section is merged onto.
func WithConfig(cfg Config) Option {
	return func(c *Component) {
		c.config = cfg
	}
}

// WithStdout sets the writer of the stdout exporter, os.Stdout by default.
func WithStdout(w io.Writer) Option {
	return func(c *Component) {
		c.stdout = w
	}
}

// Component is the OPENTELEMETRY bridge protocol.
type Component struct {
	config  Config
	logger  *logger.CtxZapLogger
	catalog *instrumentation.Catalog
	stdout  io.Writer
	stack   *stack.Stack

	injected       metric.MeterProvider
	provider       metric.MeterProvider
	owned          *sdkmetric.MeterProvider // non-nil when the bridge built the provider
	circuitBreaker *CircuitBreaker

	mu      sync.Mutex
	started bool
	stopped bool
	summary instrumentation.Summary

	sent         atomic.Pointer[instrumentation.Histogram]
	received     atomic.Pointer[instrumentation.Histogram]
	useTotalSize atomic.Bool
}

func NewComponent(opts ...Option) *Component {
	c := &Component{
		config: DefaultConfig(),
		logger: logger.GetLogger(ComponentName),
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Nop()
	}
	return c
}

func (*Component) TypeID() stack.TypeID { return TypeOpenTelemetry }

func (c *Component) Name() string {
	return ComponentName
}

func (c *Component) DependsOn() []string {
	return []string{
		component.ComponentConfig,
		component.ComponentLogger,
	}
}

// Attach binds the bridge to the stack whose protocols it instruments.
// The bridge is usually one of them.
func (c *Component) Attach(s *stack.Stack) *Component {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stack = s
	return c
}

// Init loads the "opentelemetry" section over the current configuration,
// validates it and resolves the meter provider. A nil loader keeps the
// current configuration. A provider built by an earlier Init is shut down.
func (c *Component) Init(ctx context.Context, loader component.ConfigLoader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg := c.config
	if loader != nil && loader.IsSet(ConfigKey) {
		if err := loader.Unmarshal(ConfigKey, &cfg); err != nil {
			c.logger.ErrorCtx(ctx, "opentelemetry config exists but unmarshal failed", zap.Error(err))
			return fmt.Errorf("unmarshal opentelemetry config failed: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate opentelemetry config failed: %w", err)
	}
	if err := c.releaseOwned(ctx); err != nil {
		return err
	}
	c.circuitBreaker = nil
	c.config = cfg
	c.useTotalSize.Store(cfg.UseTotalSize)

	if !c.config.Enabled {
		c.provider = noop.NewMeterProvider()
		c.logger.InfoCtx(ctx, "OpenTelemetry bridge is disabled")
		return nil
	}

	if c.catalog == nil {
		catalog, err := instruments.Catalog()
		if err != nil {
			return fmt.Errorf("build instrumentation catalog failed: %w", err)
		}
		c.catalog = catalog
	}

	mp, err := c.resolveProvider(ctx)
	if err != nil {
		return fmt.Errorf("resolve meter provider failed: %w", err)
	}
	c.provider = mp

	c.logger.InfoCtx(ctx, "OpenTelemetry bridge initialized",
		zap.String("scope_name", c.config.ScopeName),
		zap.Bool("expose_configuration_metrics", c.config.ExposeConfigurationMetrics),
		zap.Bool("owns_provider", c.owned != nil),
		zap.Int("instrumentations", c.catalog.Len()))
	return nil
}

// Start registers the metrics of every protocol of the attached stack.
// Calling it again is a no-op.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.config.Enabled || c.started {
		return nil
	}
	if c.stack == nil {
		return ErrNotAttached
	}
	if c.provider == nil {
		return ErrInvalidConfig.WithMsgf("bridge started before Init")
	}

	cluster := c.stack.ClusterName()
	node := c.stack.NodeName()
	if node == "" {
		node = uuid.NewString()
	}

	registrar := instrumentation.NewRegistrar(c.catalog, instrumentation.WithLogger(c.logger))
	c.summary = registrar.Register(ctx, c.provider, c.stack.Protocols(), instrumentation.Options{
		ScopeName:           c.config.ScopeName,
		ExposeConfiguration: c.config.ExposeConfigurationMetrics,
		CountersAsGauges:    c.config.CountersAsGauges,
		Cluster:             cluster,
		Node:                node,
	})

	if c.config.EnableMessageSizeHistogram {
		c.registerHistograms(cluster, node)
	}
	c.started = true

	c.logger.InfoCtx(ctx, "OpenTelemetry bridge started",
		zap.String("cluster", cluster),
		zap.String("node", node),
		zap.Int("specific", c.summary.Specific),
		zap.Int("generic", c.summary.Generic),
		zap.Int("failed", c.summary.Failed))
	return nil
}

// releaseOwned shuts down the provider the bridge built, if any.
func (c *Component) releaseOwned(ctx context.Context) error {
	if c.owned == nil {
		return nil
	}
	c.logger.InfoCtx(ctx, "Shutting down OpenTelemetry meter provider...")
	err := c.owned.Shutdown(ctx)
	c.owned = nil
	if err != nil {
		c.logger.ErrorCtx(ctx, "Failed to shutdown meter provider", zap.Error(err))
		return err
	}
	return nil
}

func (c *Component) registerHistograms(cluster, node string) {
	ictx := instrumentation.NewContext(c, c.provider.Meter(c.config.ScopeName), instrumentation.Attributes(cluster, node))
	ictx.Prefix = histogramPrefix
	ictx.Logger = c.logger
	h := ictx.Helper()

	c.sent.Store(h.RegisterHistogram("message.size.sent", "Distribution of sent message sizes", observability.Bytes))
	c.received.Store(h.RegisterHistogram("message.size.received", "Distribution of received message sizes", observability.Bytes))
}

// Stop shuts down the meter provider if the bridge created it.
// Calling it again is a no-op.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return nil
	}
	c.stopped = true
	c.sent.Store(nil)
	c.received.Store(nil)

	if c.owned == nil {
		return nil
	}
	if err := c.releaseOwned(ctx); err != nil {
		return err
	}
	c.logger.InfoCtx(ctx, "OpenTelemetry bridge stopped")
	return nil
}

// Down records the size of a message sent.
func (c *Component) Down(msg stack.Message) {
	c.sent.Load().Record(context.Background(), c.messageSize(msg))
}

// Up records the size of a message received.
func (c *Component) Up(msg stack.Message) {
	c.received.Load().Record(context.Background(), c.messageSize(msg))
}

func (c *Component) messageSize(msg stack.Message) int64 {
	if c.useTotalSize.Load() {
		return int64(msg.Size())
	}
	return int64(msg.Length())
}

func (c *Component) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.Enabled
}

func (c *Component) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// MeterProvider returns the resolved provider, nil before Init.
func (c *Component) MeterProvider() metric.MeterProvider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provider
}

// Summary returns the outcome of the registration done by Start.
func (c *Component) Summary() instrumentation.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

func (c *Component) CircuitBreaker() *CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.circuitBreaker
}

func (c *Component) CircuitBreakerStats() map[string]any {
	cb := c.CircuitBreaker()
	if cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}
	stats := cb.Stats()
	stats["enabled"] = true
	return stats
}
