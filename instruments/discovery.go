package instruments

import (
	"github.com/rhusar/jgroups-opentelemetry/instrumentation"
	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/protocols"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

type discoveryProtocol interface {
	stack.Protocol
	IsCoord() bool
	DiscoveryRequests() int64
}

type filePingProtocol interface {
	discoveryProtocol
	Writes() int64
	Reads() int64
}

// DiscoveryInstrumentation registers the metrics shared by all discovery protocols.
type DiscoveryInstrumentation struct {
	target stack.TypeID
}

func NewDiscovery(target stack.TypeID) DiscoveryInstrumentation {
	return DiscoveryInstrumentation{target: target}
}

func (d DiscoveryInstrumentation) Target() stack.TypeID { return d.target }

func (d DiscoveryInstrumentation) RegisterMetrics(ctx *instrumentation.Context) error {
	p, err := protocolAs[discoveryProtocol](ctx)
	if err != nil {
		return err
	}
	h := ctx.Helper()
	d.register(h, p)
	return h.Err()
}

func (DiscoveryInstrumentation) register(h *instrumentation.Helper, p discoveryProtocol) {
	h.RegisterBoolGauge("is_coord",
		"Indicates whether this member is the current coordinator (1=coordinator, 0=not coordinator)",
		observability.Dimensionless, p.IsCoord)
	h.RegisterCounter("discovery_requests",
		"Number of discovery requests sent",
		observability.Requests, p.DiscoveryRequests)
}

// FilePingInstrumentation adds the storage access counts of FILE_PING and
// the protocols derived from it.
type FilePingInstrumentation struct {
	DiscoveryInstrumentation
}

func NewFilePing(target stack.TypeID) FilePingInstrumentation {
	return FilePingInstrumentation{DiscoveryInstrumentation: NewDiscovery(target)}
}

func (f FilePingInstrumentation) RegisterMetrics(ctx *instrumentation.Context) error {
	p, err := protocolAs[filePingProtocol](ctx)
	if err != nil {
		return err
	}
	h := ctx.Helper()
	f.register(h, p)
	h.RegisterGauge("writes", "Number of times discovery information was written", observability.Unity, p.Writes)
	h.RegisterGauge("reads", "Number of times discovery information was read", observability.Unity, p.Reads)
	return h.Err()
}

// JDBCPingInstrumentation covers the legacy JDBC_PING, which reports its
// discovery requests as a gauge and has no coordinator flag.
type JDBCPingInstrumentation struct{}

func (JDBCPingInstrumentation) Target() stack.TypeID { return protocols.TypeJDBCPing }

func (JDBCPingInstrumentation) RegisterMetrics(ctx *instrumentation.Context) error {
	p, err := protocolAs[filePingProtocol](ctx)
	if err != nil {
		return err
	}
	h := ctx.Helper()
	h.RegisterGauge("writes", "Number of times discovery information was written", observability.Operations, p.Writes)
	h.RegisterGauge("reads", "Number of times discovery information was read", observability.Operations, p.Reads)
	h.RegisterGauge("discovery_requests", "Number of discovery requests sent", observability.Requests, p.DiscoveryRequests)
	return h.Err()
}
