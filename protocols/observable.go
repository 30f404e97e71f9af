package protocols

import (
	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

var observableSchema = observability.NewSchema(
	observability.Item[*Observable]{
		Field: "num_msgs_up",
		Declaration: observability.Declaration{
			Name:        "messages.up",
			Kind:        observability.Counter,
			Unit:        observability.Messages,
			Description: "Number of messages passed up the stack",
		},
		Read: func(p *Observable) any { return &p.numMsgsUp },
	},
	observability.Item[*Observable]{
		Field: "num_msgs_down",
		Declaration: observability.Declaration{
			Name:        "messages.down",
			Kind:        observability.Counter,
			Unit:        observability.Messages,
			Description: "Number of messages passed down the stack",
		},
		Read: func(p *Observable) any { return &p.numMsgsDown },
	},
)

// Observable counts the messages passing through it in both directions.
// It has no dedicated instrumentation; its counters are declared in a schema.
type Observable struct {
	numMsgsUp   observability.Adder
	numMsgsDown observability.Adder
}

func (*Observable) TypeID() stack.TypeID { return TypeObservable }

func (p *Observable) Up(stack.Message)   { p.numMsgsUp.Increment() }
func (p *Observable) Down(stack.Message) { p.numMsgsDown.Increment() }

func (p *Observable) MessagesUp() int64   { return p.numMsgsUp.Sum() }
func (p *Observable) MessagesDown() int64 { return p.numMsgsDown.Sum() }

func (p *Observable) Observables() []observability.Binding {
	return observableSchema.Bind(p)
}

// SharedLoopback is an in-process transport. It counts traffic and
// loops every message sent down back up through the owning stack.
type SharedLoopback struct {
	up    func(stack.Message)
	sent  observability.Adder
	bytes observability.Adder
}

func (*SharedLoopback) TypeID() stack.TypeID { return TypeSharedLoopback }

// Attach makes messages sent down return up through s.
func (t *SharedLoopback) Attach(s *stack.Stack) {
	t.up = s.Up
}

func (t *SharedLoopback) Down(msg stack.Message) {
	t.sent.Increment()
	t.bytes.Add(int64(msg.Size()))
	if t.up != nil {
		t.up(msg)
	}
}

func (t *SharedLoopback) MessagesSent() int64 { return t.sent.Sum() }
func (t *SharedLoopback) BytesSent() int64    { return t.bytes.Sum() }
