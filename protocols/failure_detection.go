package protocols

import (
	"sync/atomic"
	"time"

	"github.com/rhusar/jgroups-opentelemetry/stack"
)

// HeartbeatDetector is the state shared by the heartbeat based failure
// detectors FD_ALL, FD_ALL2 and FD_ALL3.
type HeartbeatDetector struct {
	Timeout  time.Duration
	Interval time.Duration

	heartbeatsSent     atomic.Int64
	heartbeatsReceived atomic.Int64
	suspectEvents      atomic.Int64
	suspected          memberSet

	timeoutCheckerRunning  atomic.Bool
	heartbeatSenderRunning atomic.Bool
}

func (h *HeartbeatDetector) setDefaults() {
	h.Timeout = 40 * time.Second
	h.Interval = 8 * time.Second
}

// Start marks the timeout checker and heartbeat sender as running.
func (h *HeartbeatDetector) Start() error {
	h.timeoutCheckerRunning.Store(true)
	h.heartbeatSenderRunning.Store(true)
	return nil
}

func (h *HeartbeatDetector) Stop() {
	h.timeoutCheckerRunning.Store(false)
	h.heartbeatSenderRunning.Store(false)
}

func (h *HeartbeatDetector) SendHeartbeat() {
	h.heartbeatsSent.Add(1)
}

// ReceiveHeartbeat records a heartbeat from member, clearing any suspicion.
func (h *HeartbeatDetector) ReceiveHeartbeat(member string) {
	h.heartbeatsReceived.Add(1)
	h.suspected.remove(member)
}

// Suspect records a suspect event for member.
func (h *HeartbeatDetector) Suspect(member string) {
	if h.suspected.add(member) {
		h.suspectEvents.Add(1)
	}
}

func (h *HeartbeatDetector) HeartbeatsSent() int64        { return h.heartbeatsSent.Load() }
func (h *HeartbeatDetector) HeartbeatsReceived() int64    { return h.heartbeatsReceived.Load() }
func (h *HeartbeatDetector) SuspectEvents() int64         { return h.suspectEvents.Load() }
func (h *HeartbeatDetector) HasSuspectedMembers() bool    { return h.suspected.size() > 0 }
func (h *HeartbeatDetector) TimeoutCheckerRunning() bool  { return h.timeoutCheckerRunning.Load() }
func (h *HeartbeatDetector) HeartbeatSenderRunning() bool { return h.heartbeatSenderRunning.Load() }

// Detector returns the shared heartbeat state.
func (h *HeartbeatDetector) Detector() *HeartbeatDetector {
	return h
}

type FDAll struct {
	HeartbeatDetector
	TimeoutCheckInterval time.Duration
	UseTimeService       bool
}

func NewFDAll() *FDAll {
	f := &FDAll{TimeoutCheckInterval: 2 * time.Second, UseTimeService: true}
	f.setDefaults()
	return f
}

func (*FDAll) TypeID() stack.TypeID { return TypeFDAll }

type FDAll2 struct{ HeartbeatDetector }

func NewFDAll2() *FDAll2 {
	f := &FDAll2{}
	f.setDefaults()
	return f
}

func (*FDAll2) TypeID() stack.TypeID { return TypeFDAll2 }

type FDAll3 struct{ HeartbeatDetector }

func NewFDAll3() *FDAll3 {
	f := &FDAll3{}
	f.setDefaults()
	return f
}

func (*FDAll3) TypeID() stack.TypeID { return TypeFDAll3 }

// NumBits is the number of bits kept per member, timeout / interval.
func (f *FDAll3) NumBits() int {
	if f.Interval <= 0 {
		return 0
	}
	return int(f.Timeout / f.Interval)
}

// FDSock is the ring based socket failure detector.
type FDSock struct {
	GetCacheTimeout    time.Duration
	SockConnTimeout    time.Duration
	SuspectMsgInterval time.Duration
	CacheMaxAge        time.Duration
	CacheMaxElements   int
	NumTries           int
	StartPort          int
	ClientBindPort     int
	PortRange          int
	KeepAlive          bool

	suspects       memberSet
	suspectEvents  atomic.Int64
	monitorRunning atomic.Bool
}

func NewFDSock() *FDSock {
	return &FDSock{
		GetCacheTimeout:    1000 * time.Millisecond,
		SockConnTimeout:    1000 * time.Millisecond,
		SuspectMsgInterval: 5000 * time.Millisecond,
		CacheMaxAge:        10000 * time.Millisecond,
		CacheMaxElements:   200,
		NumTries:           3,
		PortRange:          50,
		KeepAlive:          true,
	}
}

func (*FDSock) TypeID() stack.TypeID { return TypeFDSock }

func (f *FDSock) Start() error {
	f.monitorRunning.Store(true)
	return nil
}

func (f *FDSock) Stop() {
	f.monitorRunning.Store(false)
}

func (f *FDSock) Suspect(member string) {
	if f.suspects.add(member) {
		f.suspectEvents.Add(1)
	}
}

func (f *FDSock) Unsuspect(member string) {
	f.suspects.remove(member)
}

func (f *FDSock) NumSuspects() int     { return f.suspects.size() }
func (f *FDSock) SuspectEvents() int64 { return f.suspectEvents.Load() }
func (f *FDSock) MonitorRunning() bool { return f.monitorRunning.Load() }

// FDSock2 is the successor of FDSock, listening on an offset of the transport port.
type FDSock2 struct {
	Offset             int
	PortRange          int
	ClientBindPort     int
	MinPort            int
	MaxPort            int
	SuspectMsgInterval time.Duration
	ConnectTimeout     time.Duration
	Linger             int // SO_LINGER in seconds, -1 disables it

	suspects      memberSet
	suspectEvents atomic.Int64
}

func NewFDSock2() *FDSock2 {
	return &FDSock2{
		Offset:             100,
		PortRange:          5,
		SuspectMsgInterval: 5000 * time.Millisecond,
		ConnectTimeout:     1000 * time.Millisecond,
		Linger:             -1,
	}
}

func (*FDSock2) TypeID() stack.TypeID { return TypeFDSock2 }

func (f *FDSock2) Suspect(member string) {
	if f.suspects.add(member) {
		f.suspectEvents.Add(1)
	}
}

func (f *FDSock2) Unsuspect(member string) {
	f.suspects.remove(member)
}

func (f *FDSock2) NumSuspects() int     { return f.suspects.size() }
func (f *FDSock2) SuspectEvents() int64 { return f.suspectEvents.Load() }

// VerifySuspect2 double-checks suspicions before passing them up.
type VerifySuspect2 struct {
	suspects memberSet
	running  atomic.Bool
}

func (*VerifySuspect2) TypeID() stack.TypeID { return TypeVerifySuspect2 }

// Verify starts verifying member.
func (v *VerifySuspect2) Verify(member string) {
	v.suspects.add(member)
	v.running.Store(true)
}

// Done ends the verification of member.
func (v *VerifySuspect2) Done(member string) {
	v.suspects.remove(member)
	if v.suspects.size() == 0 {
		v.running.Store(false)
	}
}

func (v *VerifySuspect2) IsVerifying(member string) bool {
	return v.suspects.contains(member)
}

func (v *VerifySuspect2) NumSuspects() int { return v.suspects.size() }
func (v *VerifySuspect2) Running() bool    { return v.running.Load() }
