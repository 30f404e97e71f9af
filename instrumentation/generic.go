package instrumentation

import (
	"strings"

	"go.uber.org/zap"

	"github.com/rhusar/jgroups-opentelemetry/logger"
	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

// Generic is the fallback instrumentation. It registers one reading per
// declared item of a protocol implementing observability.Observable.
// Protocols without declarations register nothing.
type Generic struct{}

func (Generic) Target() stack.TypeID { return stack.AnyProtocol }

func (Generic) RegisterMetrics(ctx *Context) error {
	obs, ok := ctx.Protocol.(observability.Observable)
	if !ok {
		return nil
	}
	h := ctx.Helper()
	log := ctx.log()
	for _, b := range obs.Observables() {
		registerBinding(ctx, h, log, b)
	}
	return h.Err()
}

func registerBinding(ctx *Context, h *Helper, log *logger.CtxZapLogger, b observability.Binding) {
	d := b.Declaration
	if d.Scope == observability.Configuration && !ctx.ExposeConfiguration {
		return
	}
	name := d.Name
	if name == "" {
		name = DeriveName(b.Field)
	}
	if b.Read == nil {
		log.Debug("declared item has no accessor", zap.String("metric", ctx.Prefix+name))
		return
	}

	read := bindingReader(ctx.Prefix+name, b.Read, log)
	switch d.Kind {
	case observability.Counter:
		h.RegisterCounter(name, d.Description, d.Unit, read)
	case observability.UpDownCounter:
		h.RegisterUpDownCounter(name, d.Description, d.Unit, read)
	case observability.Gauge:
		h.RegisterGauge(name, d.Description, d.Unit, read)
	case observability.Histogram:
		log.Warn("histogram declarations are not supported, skipping",
			zap.String("metric", ctx.Prefix+name), zap.String("field", b.Field))
	default:
		log.Warn("unknown declaration kind, skipping",
			zap.String("metric", ctx.Prefix+name), zap.Stringer("kind", d.Kind))
	}
}

// bindingReader coerces the bound value. Coercion failures read 0 and are logged at debug.
func bindingReader(name string, read func() any, log *logger.CtxZapLogger) func() int64 {
	return func() int64 {
		v, err := toInt64(read())
		if err != nil {
			log.Debug("metric read failed", zap.String("metric", name), zap.Error(err))
			return 0
		}
		return v
	}
}

var nameReplacer = strings.NewReplacer("_", ".", "-", ".")

// DeriveName turns a declared field name into a metric name suffix,
// e.g. num_msgs_sent becomes num.msgs.sent.
func DeriveName(field string) string {
	return nameReplacer.Replace(field)
}
