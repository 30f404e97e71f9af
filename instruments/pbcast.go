package instruments

import (
	"github.com/rhusar/jgroups-opentelemetry/instrumentation"
	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/protocols/pbcast"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

type GMSInstrumentation struct{}

func (GMSInstrumentation) Target() stack.TypeID { return pbcast.TypeGMS }

func (GMSInstrumentation) RegisterMetrics(ctx *instrumentation.Context) error {
	p, err := protocolAs[*pbcast.GMS](ctx)
	if err != nil {
		return err
	}
	h := ctx.Helper()
	h.RegisterGauge("views", "Number of views installed", observability.Unity, p.NumViews)
	h.RegisterBoolGauge("is_coord", "Whether this member is the coordinator", observability.Unity, p.IsCoord)
	h.RegisterBoolGauge("is_leaving", "Whether this member is leaving the cluster", observability.Unity, p.IsLeaving)
	h.RegisterBoolGauge("merge.in_progress", "Whether a merge is in progress", observability.Unity, p.IsMergeInProgress)
	h.RegisterBoolGauge("merge.task.running", "Whether the merge task is running", observability.Unity, p.IsMergeTaskRunning)
	h.RegisterBoolGauge("merge.killer.running", "Whether the merge killer task is running", observability.Unity, p.IsMergeKillerRunning)
	h.RegisterGauge("view_handler.queue", "Number of requests queued in the view handler", observability.Unity, p.ViewHandlerQueue)
	h.RegisterBoolGauge("view_handler.suspended", "Whether the view handler is suspended", observability.Unity, p.IsViewHandlerSuspended)

	if ctx.ExposeConfiguration {
		h.RegisterGauge("timeout.join", "Join timeout in milliseconds",
			observability.Milliseconds, durationMillis(&p.JoinTimeout))
		h.RegisterGauge("timeout.leave", "Leave timeout in milliseconds",
			observability.Milliseconds, durationMillis(&p.LeaveTimeout))
		h.RegisterGauge("timeout.merge", "Merge timeout in milliseconds",
			observability.Milliseconds, durationMillis(&p.MergeTimeout))
		h.RegisterGauge("timeout.view_ack_collection", "Timeout in milliseconds for collecting view acks, 0 waits forever",
			observability.Milliseconds, durationMillis(&p.ViewAckCollectionTimeout))
		h.RegisterGauge("join_attempts.max", "Maximum number of join attempts, 0 never gives up",
			observability.Unity, intReader(func() int { return p.MaxJoinAttempts }))
	}
	return h.Err()
}

type STABLEInstrumentation struct{}

func (STABLEInstrumentation) Target() stack.TypeID { return pbcast.TypeSTABLE }

func (STABLEInstrumentation) RegisterMetrics(ctx *instrumentation.Context) error {
	p, err := protocolAs[*pbcast.STABLE](ctx)
	if err != nil {
		return err
	}
	h := ctx.Helper()
	h.RegisterCounter("stable.sent", "Number of STABLE messages sent", observability.Unity, p.StableSent)
	h.RegisterCounter("stable.received", "Number of STABLE messages received", observability.Unity, p.StableReceived)
	h.RegisterCounter("stability.sent", "Number of STABILITY messages sent", observability.Unity, p.StabilitySent)
	h.RegisterCounter("stability.received", "Number of STABILITY messages received", observability.Unity, p.StabilityReceived)
	h.RegisterGauge("bytes.received", "Bytes received since the last stability round", observability.Bytes, p.BytesReceived)
	h.RegisterGauge("votes", "Number of votes collected in the current round", observability.Unity, p.Votes)
	h.RegisterBoolGauge("suspended", "Whether garbage collection is suspended", observability.Unity, p.IsSuspended)
	h.RegisterBoolGauge("stable_task.running", "Whether the periodic gossip task is running", observability.Unity, p.StableTaskRunning)

	if ctx.ExposeConfiguration {
		h.RegisterGauge("gossip.avg", "Average interval in milliseconds between STABLE gossip messages",
			observability.Milliseconds, durationMillis(&p.DesiredAvgGossip))
		h.RegisterGauge("bytes.max", "Bytes received after which a STABLE round is triggered",
			observability.Bytes, func() int64 { return p.MaxBytes })
	}
	return h.Err()
}
