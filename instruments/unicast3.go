package instruments

import (
	"github.com/rhusar/jgroups-opentelemetry/instrumentation"
	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/protocols"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

type Unicast3Instrumentation struct{}

func (Unicast3Instrumentation) Target() stack.TypeID { return protocols.TypeUnicast3 }

func (Unicast3Instrumentation) RegisterMetrics(ctx *instrumentation.Context) error {
	p, err := protocolAs[*protocols.Unicast3](ctx)
	if err != nil {
		return err
	}
	h := ctx.Helper()

	h.RegisterCounter("messages.sent", "Total number of unicast messages sent", observability.Messages, p.MessagesSent)
	h.RegisterCounter("messages.received", "Total number of unicast messages received", observability.Messages, p.MessagesReceived)
	h.RegisterCounter("retransmissions", "Number of retransmitted messages (indicates network issues)", observability.Messages, p.Retransmissions)
	h.RegisterCounter("xmit_requests.sent", "Number of retransmit requests sent", observability.Requests, p.XmitRequestsSent)
	h.RegisterCounter("xmit_requests.received", "Number of retransmit requests received", observability.Requests, p.XmitRequestsReceived)
	h.RegisterCounter("acks.sent", "Number of acknowledgments sent", observability.Acks, p.AcksSent)
	h.RegisterCounter("acks.received", "Number of acknowledgments received", observability.Acks, p.AcksReceived)

	h.RegisterGauge("connections", "Total number of connections",
		observability.Connections, intReader(p.NumConnections))
	h.RegisterGauge("connections.send", "Number of outgoing send connections",
		observability.Connections, intReader(p.NumSendConnections))
	h.RegisterGauge("connections.receive", "Number of incoming receive connections",
		observability.Connections, intReader(p.NumReceiveConnections))
	h.RegisterGauge("messages.unacked", "Number of unacknowledged messages (indicates backpressure)",
		observability.Messages, intReader(p.NumUnackedMessages))
	h.RegisterGauge("xmit_table.missing_messages", "Number of missing messages in receive windows",
		observability.Messages, intReader(p.XmitTableMissingMessages))
	h.RegisterGauge("xmit_table.undelivered_messages", "Number of undelivered messages in all receive windows",
		observability.Messages, intReader(p.XmitTableUndeliveredMessages))
	return h.Err()
}
