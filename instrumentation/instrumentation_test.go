package instrumentation

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

const (
	typeDummy   stack.TypeID = stack.RootNamespace + "DUMMY"
	typeSilent  stack.TypeID = stack.RootNamespace + "SILENT"
	typeSpecial stack.TypeID = stack.RootNamespace + "pbcast.SPECIAL"
)

var errUnavailable = errors.New("value unavailable")

// dummy declares one Runtime counter and one Configuration gauge.
type dummy struct {
	sent     observability.Adder
	interval time.Duration
}

var dummySchema = observability.NewSchema(
	observability.Item[*dummy]{
		Field: "num_msgs_sent",
		Declaration: observability.Declaration{
			Kind:        observability.Counter,
			Unit:        observability.Messages,
			Description: "Number of messages sent",
		},
		Read: func(p *dummy) any { return &p.sent },
	},
	observability.Item[*dummy]{
		Field: "interval",
		Declaration: observability.Declaration{
			Name:        "interval.check",
			Kind:        observability.Gauge,
			Unit:        observability.Milliseconds,
			Description: "Check interval",
			Scope:       observability.Configuration,
		},
		Read: func(p *dummy) any { return p.interval.Milliseconds() },
	},
)

func newDummy(sent int64) *dummy {
	p := &dummy{interval: 1500 * time.Millisecond}
	p.sent.Add(sent)
	return p
}

func (*dummy) TypeID() stack.TypeID { return typeDummy }

func (p *dummy) Observables() []observability.Binding { return dummySchema.Bind(p) }

// faulty declares items whose reads fail in different ways next to a healthy one.
type faulty struct {
	healthy atomic.Int64
}

var faultySchema = observability.NewSchema(
	observability.Item[*faulty]{
		Field:       "unavailable",
		Declaration: observability.Declaration{Kind: observability.Gauge},
		Read:        func(*faulty) any { return errUnavailable },
	},
	observability.Item[*faulty]{
		Field:       "exploding",
		Declaration: observability.Declaration{Kind: observability.Gauge},
		Read:        func(*faulty) any { panic("destroyed") },
	},
	observability.Item[*faulty]{
		Field:       "wrong_shape",
		Declaration: observability.Declaration{Kind: observability.Gauge},
		Read:        func(*faulty) any { return "not a number" },
	},
	observability.Item[*faulty]{
		Field:       "healthy",
		Declaration: observability.Declaration{Kind: observability.Gauge},
		Read:        func(f *faulty) any { return &f.healthy },
	},
	observability.Item[*faulty]{
		Field:       "latency",
		Declaration: observability.Declaration{Kind: observability.Histogram, Unit: observability.Milliseconds},
		Read:        func(*faulty) any { return 0 },
	},
)

func (*faulty) TypeID() stack.TypeID { return typeDummy }

func (f *faulty) Observables() []observability.Binding { return faultySchema.Bind(f) }

// silent publishes nothing.
type silent struct{}

func (silent) TypeID() stack.TypeID { return typeSilent }

// special has a dedicated instrumentation and also declares a schema.
type special struct {
	dummy
}

func (*special) TypeID() stack.TypeID { return typeSpecial }

type specialInstrumentation struct {
	calls int
}

func (*specialInstrumentation) Target() stack.TypeID { return typeSpecial }

func (s *specialInstrumentation) RegisterMetrics(ctx *Context) error {
	s.calls++
	p := ctx.Protocol.(*special)
	h := ctx.Helper()
	h.RegisterCounter("sent", "Messages sent", observability.Messages, p.sent.Sum)
	return h.Err()
}

type failingInstrumentation struct {
	target stack.TypeID
	panics bool
}

func (f failingInstrumentation) Target() stack.TypeID { return f.target }

func (f failingInstrumentation) RegisterMetrics(*Context) error {
	if f.panics {
		panic("broken instrumentation")
	}
	return errUnavailable
}
