package instruments

import (
	"github.com/rhusar/jgroups-opentelemetry/instrumentation"
	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/protocols"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

type Merge3Instrumentation struct{}

func (Merge3Instrumentation) Target() stack.TypeID { return protocols.TypeMerge3 }

func (Merge3Instrumentation) RegisterMetrics(ctx *instrumentation.Context) error {
	p, err := protocolAs[*protocols.Merge3](ctx)
	if err != nil {
		return err
	}
	h := ctx.Helper()
	h.RegisterGauge("views.cached", "Number of cached views from other members",
		observability.Dimensionless, intReader(p.ViewsCached))
	h.RegisterCounter("merge_events", "Number of merge events triggered",
		observability.Dimensionless, p.MergeEvents)
	h.RegisterBoolGauge("view_consistency_checker.running", "Whether the view consistency checker task is running",
		observability.Dimensionless, p.ViewConsistencyCheckerRunning)
	h.RegisterBoolGauge("info_sender.running", "Whether the info sender task is running",
		observability.Dimensionless, p.InfoSenderRunning)

	if ctx.ExposeConfiguration {
		h.RegisterGauge("interval.min", "Minimum interval in milliseconds between info messages",
			observability.Milliseconds, durationMillis(&p.MinInterval))
		h.RegisterGauge("interval.max", "Maximum interval in milliseconds between info messages",
			observability.Milliseconds, durationMillis(&p.MaxInterval))
		h.RegisterGauge("interval.check", "Interval in milliseconds at which view consistency is checked",
			observability.Milliseconds, durationMillis(&p.CheckInterval))
		h.RegisterGauge("max_participants_in_merge", "Maximum number of members taking part in a merge, 0 for unlimited",
			observability.Dimensionless, intReader(func() int { return p.MaxParticipantsInMerge }))
	}
	return h.Err()
}
