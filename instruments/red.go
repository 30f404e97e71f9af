package instruments

import (
	"github.com/rhusar/jgroups-opentelemetry/instrumentation"
	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/protocols"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

type REDInstrumentation struct{}

func (REDInstrumentation) Target() stack.TypeID { return protocols.TypeRED }

func (REDInstrumentation) RegisterMetrics(ctx *instrumentation.Context) error {
	p, err := protocolAs[*protocols.RED](ctx)
	if err != nil {
		return err
	}
	h := ctx.Helper()
	h.RegisterCounter("messages.total", "Total number of messages processed", observability.Unity, p.TotalMessages)
	h.RegisterCounter("messages.dropped", "Number of messages dropped", observability.Unity, p.DroppedMessages)
	h.RegisterDoubleGauge("queue.avg_size", "Average size of the bundler queue", observability.Unity, p.AverageQueueSize)
	h.RegisterDoubleGauge("messages.drop_rate", "Ratio of dropped to total messages", observability.Unity, p.DropRate)
	h.RegisterGauge("queue.capacity", "Capacity of the bundler queue",
		observability.Unity, intReader(func() int { return p.QueueCapacity }))

	if ctx.ExposeConfiguration {
		h.RegisterBoolGauge("enabled", "Whether random early drop is enabled",
			observability.Unity, func() bool { return p.Enabled })
		h.RegisterGauge("threshold.min", "Queue size below which no message is dropped", observability.Unity, p.Min)
		h.RegisterGauge("threshold.max", "Queue size at or above which every message is dropped", observability.Unity, p.Max)
	}
	return h.Err()
}
