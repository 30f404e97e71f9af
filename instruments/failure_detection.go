package instruments

import (
	"github.com/rhusar/jgroups-opentelemetry/instrumentation"
	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/protocols"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

type heartbeatProtocol interface {
	stack.Protocol
	Detector() *protocols.HeartbeatDetector
}

// heartbeatUnits are the units the heartbeat detectors report their runtime
// metrics in. FD_ALL2 reports all of them as plain counts.
type heartbeatUnits struct {
	heartbeats observability.Unit
	flags      observability.Unit
}

var (
	defaultHeartbeatUnits = heartbeatUnits{heartbeats: observability.Messages, flags: observability.Dimensionless}
	fdAll2HeartbeatUnits  = heartbeatUnits{heartbeats: observability.Unity, flags: observability.Unity}
)

func registerHeartbeat(ctx *instrumentation.Context, d *protocols.HeartbeatDetector, u heartbeatUnits) {
	h := ctx.Helper()
	h.RegisterCounter("heartbeats.sent", "Number of heartbeats sent", u.heartbeats, d.HeartbeatsSent)
	h.RegisterCounter("heartbeats.received", "Number of heartbeats received", u.heartbeats, d.HeartbeatsReceived)
	h.RegisterCounter("suspect_events", "Number of suspect events generated", u.flags, d.SuspectEvents)
	h.RegisterBoolGauge("has_suspected_members", "Whether there are currently suspected members",
		u.flags, d.HasSuspectedMembers)
	h.RegisterBoolGauge("timeout_checker.running", "Whether the timeout checker task is running",
		u.flags, d.TimeoutCheckerRunning)
	h.RegisterBoolGauge("heartbeat_sender.running", "Whether the heartbeat sender task is running",
		u.flags, d.HeartbeatSenderRunning)

	if ctx.ExposeConfiguration {
		h.RegisterGauge("timeout", "Timeout in milliseconds after which a member is suspected",
			observability.Milliseconds, func() int64 { return d.Timeout.Milliseconds() })
		h.RegisterGauge("interval", "Interval in milliseconds at which heartbeats are sent",
			observability.Milliseconds, func() int64 { return d.Interval.Milliseconds() })
	}
}

// HeartbeatInstrumentation covers FD_ALL2 and any other detector built on
// the shared heartbeat state without extra configuration.
type HeartbeatInstrumentation struct {
	target stack.TypeID
	units  heartbeatUnits
}

func NewFDAll2() HeartbeatInstrumentation {
	return HeartbeatInstrumentation{target: protocols.TypeFDAll2, units: fdAll2HeartbeatUnits}
}

func (hb HeartbeatInstrumentation) Target() stack.TypeID { return hb.target }

func (hb HeartbeatInstrumentation) RegisterMetrics(ctx *instrumentation.Context) error {
	p, err := protocolAs[heartbeatProtocol](ctx)
	if err != nil {
		return err
	}
	registerHeartbeat(ctx, p.Detector(), hb.units)
	return ctx.Helper().Err()
}

type FDAllInstrumentation struct{}

func (FDAllInstrumentation) Target() stack.TypeID { return protocols.TypeFDAll }

func (FDAllInstrumentation) RegisterMetrics(ctx *instrumentation.Context) error {
	p, err := protocolAs[*protocols.FDAll](ctx)
	if err != nil {
		return err
	}
	registerHeartbeat(ctx, p.Detector(), defaultHeartbeatUnits)
	h := ctx.Helper()
	if ctx.ExposeConfiguration {
		h.RegisterGauge("timeout_check_interval", "Interval in milliseconds at which the timeout check runs",
			observability.Milliseconds, func() int64 { return p.TimeoutCheckInterval.Milliseconds() })
		h.RegisterBoolGauge("use_time_service", "Whether the time service is used instead of the system clock",
			observability.Dimensionless, func() bool { return p.UseTimeService })
	}
	return h.Err()
}

type FDAll3Instrumentation struct{}

func (FDAll3Instrumentation) Target() stack.TypeID { return protocols.TypeFDAll3 }

func (FDAll3Instrumentation) RegisterMetrics(ctx *instrumentation.Context) error {
	p, err := protocolAs[*protocols.FDAll3](ctx)
	if err != nil {
		return err
	}
	registerHeartbeat(ctx, p.Detector(), defaultHeartbeatUnits)
	h := ctx.Helper()
	if ctx.ExposeConfiguration {
		h.RegisterGauge("num_bits", "Number of bits used to track heartbeats per member",
			observability.Dimensionless, intReader(p.NumBits))
	}
	return h.Err()
}

type FDSockInstrumentation struct{}

func (FDSockInstrumentation) Target() stack.TypeID { return protocols.TypeFDSock }

func (FDSockInstrumentation) RegisterMetrics(ctx *instrumentation.Context) error {
	p, err := protocolAs[*protocols.FDSock](ctx)
	if err != nil {
		return err
	}
	h := ctx.Helper()
	h.RegisterGauge("suspects", "Number of currently suspected members", observability.Unity, intReader(p.NumSuspects))
	h.RegisterCounter("suspect_events", "Number of suspect events generated", observability.Unity, p.SuspectEvents)
	h.RegisterBoolGauge("monitor.running", "Whether the ping monitor task is running", observability.Unity, p.MonitorRunning)

	if ctx.ExposeConfiguration {
		h.RegisterGauge("timeout.get_cache", "Timeout in milliseconds for getting the cache from the coordinator",
			observability.Milliseconds, durationMillis(&p.GetCacheTimeout))
		h.RegisterGauge("timeout.sock_conn", "Timeout in milliseconds for establishing a socket connection",
			observability.Milliseconds, durationMillis(&p.SockConnTimeout))
		h.RegisterGauge("interval.suspect_msg", "Interval in milliseconds at which suspect messages are resent",
			observability.Milliseconds, durationMillis(&p.SuspectMsgInterval))
		h.RegisterGauge("cache.max_elements", "Maximum number of elements in the cache",
			observability.Unity, intReader(func() int { return p.CacheMaxElements }))
		h.RegisterGauge("cache.max_age", "Maximum age in milliseconds of cache elements",
			observability.Milliseconds, durationMillis(&p.CacheMaxAge))
		h.RegisterGauge("num_tries", "Number of attempts to get the cache from the coordinator",
			observability.Unity, intReader(func() int { return p.NumTries }))
		h.RegisterGauge("port.start", "Start port of the server socket",
			observability.Unity, intReader(func() int { return p.StartPort }))
		h.RegisterGauge("port.client_bind", "Port the client socket binds to",
			observability.Unity, intReader(func() int { return p.ClientBindPort }))
		h.RegisterGauge("port.range", "Number of ports to probe for the server socket",
			observability.Unity, intReader(func() int { return p.PortRange }))
		h.RegisterBoolGauge("keep_alive", "Whether TCP keep alive is enabled on the client socket",
			observability.Unity, func() bool { return p.KeepAlive })
	}
	return h.Err()
}

type FDSock2Instrumentation struct{}

func (FDSock2Instrumentation) Target() stack.TypeID { return protocols.TypeFDSock2 }

func (FDSock2Instrumentation) RegisterMetrics(ctx *instrumentation.Context) error {
	p, err := protocolAs[*protocols.FDSock2](ctx)
	if err != nil {
		return err
	}
	h := ctx.Helper()
	h.RegisterGauge("suspects", "Number of currently suspected members", observability.Unity, intReader(p.NumSuspects))
	h.RegisterCounter("suspect_events", "Number of suspect events generated", observability.Unity, p.SuspectEvents)

	if ctx.ExposeConfiguration {
		h.RegisterGauge("offset", "Offset from the transport port of the server socket",
			observability.Unity, intReader(func() int { return p.Offset }))
		h.RegisterGauge("port.range", "Number of ports to probe for the server socket",
			observability.Unity, intReader(func() int { return p.PortRange }))
		h.RegisterGauge("port.client_bind", "Port the client socket binds to",
			observability.Unity, intReader(func() int { return p.ClientBindPort }))
		h.RegisterGauge("port.min", "Minimum port of the server socket",
			observability.Unity, intReader(func() int { return p.MinPort }))
		h.RegisterGauge("port.max", "Maximum port of the server socket",
			observability.Unity, intReader(func() int { return p.MaxPort }))
		h.RegisterGauge("interval.suspect_msg", "Interval in milliseconds at which suspect messages are resent",
			observability.Milliseconds, durationMillis(&p.SuspectMsgInterval))
		h.RegisterGauge("timeout.connect", "Timeout in milliseconds for connecting to the next member",
			observability.Milliseconds, durationMillis(&p.ConnectTimeout))
		h.RegisterGauge("linger", "SO_LINGER in seconds of the client socket, -1 when disabled",
			observability.Seconds, intReader(func() int { return p.Linger }))
	}
	return h.Err()
}

type VerifySuspect2Instrumentation struct{}

func (VerifySuspect2Instrumentation) Target() stack.TypeID { return protocols.TypeVerifySuspect2 }

func (VerifySuspect2Instrumentation) RegisterMetrics(ctx *instrumentation.Context) error {
	p, err := protocolAs[*protocols.VerifySuspect2](ctx)
	if err != nil {
		return err
	}
	h := ctx.Helper()
	h.RegisterGauge("suspects", "Number of members currently being verified",
		observability.Members, intReader(p.NumSuspects))
	h.RegisterBoolGauge("verification_task_running", "Whether the verification task is running",
		observability.Dimensionless, p.Running)
	return h.Err()
}
