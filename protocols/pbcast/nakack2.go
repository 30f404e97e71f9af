package pbcast

import (
	"sync/atomic"
	"time"

	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

// Retransmitter is the retransmission state shared by the reliable protocols.
type Retransmitter struct {
	XmitInterval time.Duration

	xmitReqsSent     observability.Adder
	xmitReqsReceived observability.Adder
	xmitRspsSent     observability.Adder
}

var retransmitterSchema = observability.NewSchema(
	observability.Item[*Retransmitter]{
		Field: "xmit_reqs_sent",
		Declaration: observability.Declaration{
			Name:        "xmit_requests.sent",
			Kind:        observability.Counter,
			Unit:        observability.Requests,
			Description: "Number of retransmit requests sent",
		},
		Read: func(r *Retransmitter) any { return &r.xmitReqsSent },
	},
	observability.Item[*Retransmitter]{
		Field: "xmit_reqs_received",
		Declaration: observability.Declaration{
			Name:        "xmit_requests.received",
			Kind:        observability.Counter,
			Unit:        observability.Requests,
			Description: "Number of retransmit requests received",
		},
		Read: func(r *Retransmitter) any { return &r.xmitReqsReceived },
	},
	observability.Item[*Retransmitter]{
		Field: "xmit_rsps_sent",
		Declaration: observability.Declaration{
			Name:        "xmit_responses.sent",
			Kind:        observability.Counter,
			Unit:        observability.Messages,
			Description: "Number of retransmitted messages sent",
		},
		Read: func(r *Retransmitter) any { return &r.xmitRspsSent },
	},
	observability.Item[*Retransmitter]{
		Field: "xmit_interval",
		Declaration: observability.Declaration{
			Name:        "xmit.interval",
			Kind:        observability.Gauge,
			Unit:        observability.Milliseconds,
			Description: "Interval in milliseconds at which missing messages are requested again",
			Scope:       observability.Configuration,
		},
		Read: func(r *Retransmitter) any { return r.XmitInterval.Milliseconds() },
	},
)

// RequestRetransmission records a retransmit request sent to a peer.
func (r *Retransmitter) RequestRetransmission() { r.xmitReqsSent.Increment() }

// Retransmit records a retransmit request received and answered with n messages.
func (r *Retransmitter) Retransmit(n int) {
	r.xmitReqsReceived.Increment()
	r.xmitRspsSent.Add(int64(n))
}

// NAKACK2 is the negative-ack based reliable multicast protocol.
// It has no dedicated instrumentation; its state is declared in a schema that
// includes the Retransmitter items.
type NAKACK2 struct {
	Retransmitter
	DiscardDeliveredMsgs  bool
	BecomeServerQueueSize int

	msgsSent     observability.Adder
	msgsReceived observability.Adder
	highestSeqno atomic.Int64
}

var nakack2Schema = observability.Inherit(retransmitterSchema,
	func(p *NAKACK2) *Retransmitter { return &p.Retransmitter },
	observability.Item[*NAKACK2]{
		Field: "num_messages_sent",
		Declaration: observability.Declaration{
			Kind:        observability.Counter,
			Unit:        observability.Messages,
			Description: "Number of multicast messages sent",
		},
		Read: func(p *NAKACK2) any { return &p.msgsSent },
	},
	observability.Item[*NAKACK2]{
		Field: "num_messages_received",
		Declaration: observability.Declaration{
			Kind:        observability.Counter,
			Unit:        observability.Messages,
			Description: "Number of multicast messages received",
		},
		Read: func(p *NAKACK2) any { return &p.msgsReceived },
	},
	observability.Item[*NAKACK2]{
		Field: "highest_seqno",
		Declaration: observability.Declaration{
			Name:        "seqno.highest",
			Kind:        observability.Gauge,
			Description: "Highest sequence number sent by this member",
		},
		Read: func(p *NAKACK2) any { return p.highestSeqno.Load() },
	},
	observability.Item[*NAKACK2]{
		Field: "discard_delivered_msgs",
		Declaration: observability.Declaration{
			Kind:        observability.Gauge,
			Description: "Whether delivered messages are discarded (1=enabled, 0=disabled)",
			Scope:       observability.Configuration,
		},
		Read: func(p *NAKACK2) any { return p.DiscardDeliveredMsgs },
	},
	observability.Item[*NAKACK2]{
		Field: "become_server_queue_size",
		Declaration: observability.Declaration{
			Kind:        observability.Gauge,
			Unit:        observability.Messages,
			Description: "Size of the queue holding messages received before the member became a server",
			Scope:       observability.Configuration,
		},
		Read: func(p *NAKACK2) any { return p.BecomeServerQueueSize },
	},
)

func NewNAKACK2() *NAKACK2 {
	return &NAKACK2{
		Retransmitter:         Retransmitter{XmitInterval: 1000 * time.Millisecond},
		DiscardDeliveredMsgs:  true,
		BecomeServerQueueSize: 50,
	}
}

func (*NAKACK2) TypeID() stack.TypeID { return TypeNAKACK2 }

func (p *NAKACK2) Send() {
	p.msgsSent.Increment()
	p.highestSeqno.Add(1)
}

func (p *NAKACK2) Receive() {
	p.msgsReceived.Increment()
}

func (p *NAKACK2) Observables() []observability.Binding {
	return nakack2Schema.Bind(p)
}
