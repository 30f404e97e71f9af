package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/rhusar/jgroups-opentelemetry/logger"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

// DefaultScopeName is the instrumentation scope of the meter.
const DefaultScopeName = "org.jgroups"

// Options configure one registration pass.
type Options struct {
	// ScopeName names the meter. Empty means DefaultScopeName.
	ScopeName           string
	ExposeConfiguration bool
	CountersAsGauges    bool
	Cluster             string
	Node                string
}

// Summary counts the outcome of a registration pass.
type Summary struct {
	Specific int // protocols handled by a specific instrumentation
	Generic  int // protocols handled by the fallback
	Skipped  int // protocols with no instrumentation at all
	Failed   int // protocols whose registration returned an error
}

// Total is the number of protocols an instrumentation ran for.
func (s Summary) Total() int {
	return s.Specific + s.Generic
}

// RegistrarOption configures a Registrar.
type RegistrarOption func(*Registrar)

// WithLogger sets the logger passed to every Context.
func WithLogger(l *logger.CtxZapLogger) RegistrarOption {
	return func(r *Registrar) {
		r.logger = l
	}
}

// Registrar installs the metrics of a stack's protocols.
type Registrar struct {
	catalog *Catalog
	logger  *logger.CtxZapLogger
}

func NewRegistrar(catalog *Catalog, opts ...RegistrarOption) *Registrar {
	r := &Registrar{
		catalog: catalog,
		logger:  logger.GetLogger("instrumentation"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Nop()
	}
	return r
}

// Register runs the matching instrumentation for every protocol, in stack order.
// A specific instrumentation wins; otherwise the catalog fallback runs; protocols
// with neither are skipped. Per protocol errors are logged and counted, never returned.
// A nil provider registers nothing.
func (r *Registrar) Register(ctx context.Context, mp metric.MeterProvider, protocols []stack.Protocol, opts Options) Summary {
	var sum Summary
	if mp == nil {
		r.logger.DebugCtx(ctx, "no meter provider, metrics registration skipped")
		return sum
	}

	scope := opts.ScopeName
	if scope == "" {
		scope = DefaultScopeName
	}
	meter := mp.Meter(scope)
	attrs := Attributes(opts.Cluster, opts.Node)

	for _, p := range protocols {
		if p == nil {
			sum.Skipped++
			continue
		}
		id := p.TypeID()
		impl, specific := r.catalog.Lookup(id)
		if !specific {
			impl = r.catalog.Fallback()
		}
		if impl == nil {
			sum.Skipped++
			continue
		}

		ictx := NewContext(p, meter, attrs)
		ictx.ExposeConfiguration = opts.ExposeConfiguration
		ictx.CountersAsGauges = opts.CountersAsGauges
		ictx.Logger = r.logger.With(zap.String("protocol", id.Name()))

		if err := r.run(impl, ictx); err != nil {
			sum.Failed++
			r.logger.WarnCtx(ctx, "metrics registration failed",
				zap.String("protocol", id.String()), zap.Error(err))
		}
		if specific {
			sum.Specific++
			r.logger.DebugCtx(ctx, "registered specific metrics instrumentation", zap.String("protocol", id.Name()))
		} else {
			sum.Generic++
		}
	}

	if sum.Total() == 0 {
		r.logger.DebugCtx(ctx, "no metrics instrumentation registered")
	} else {
		r.logger.DebugCtx(ctx, "registered metrics instrumentation",
			zap.Int("specific", sum.Specific), zap.Int("generic", sum.Generic),
			zap.Int("skipped", sum.Skipped), zap.Int("failed", sum.Failed))
	}
	return sum
}

func (r *Registrar) run(impl Instrumentation, ctx *Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("instrumentation %T panicked: %v", impl, rec)
		}
	}()
	return impl.RegisterMetrics(ctx)
}
