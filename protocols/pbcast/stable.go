package pbcast

import (
	"sync/atomic"
	"time"

	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

// STABLE computes the messages seen by all members so they can be garbage collected.
type STABLE struct {
	DesiredAvgGossip time.Duration // 0 disables periodic gossip
	MaxBytes         int64         // 0 disables byte based triggering

	stableSent        observability.Adder
	stableReceived    observability.Adder
	stabilitySent     observability.Adder
	stabilityReceived observability.Adder

	bytesReceived atomic.Int64
	votes         atomic.Int64
	suspended     atomic.Bool
	taskRunning   atomic.Bool
}

func NewSTABLE() *STABLE {
	return &STABLE{
		DesiredAvgGossip: 20000 * time.Millisecond,
		MaxBytes:         2_000_000,
	}
}

func (*STABLE) TypeID() stack.TypeID { return TypeSTABLE }

func (s *STABLE) Start() error {
	s.taskRunning.Store(s.DesiredAvgGossip > 0)
	return nil
}

func (s *STABLE) Stop() {
	s.taskRunning.Store(false)
}

// RecordBytes accumulates n bytes of multicast traffic. Once MaxBytes is reached
// a STABLE message is sent and the accumulator reset; it reports whether that happened.
func (s *STABLE) RecordBytes(n int64) bool {
	total := s.bytesReceived.Add(n)
	if s.MaxBytes <= 0 || total < s.MaxBytes || s.suspended.Load() {
		return false
	}
	s.bytesReceived.Store(0)
	s.stableSent.Increment()
	return true
}

// ReceiveStable records a STABLE digest from a member. When votes reach
// members, STABILITY is sent and the votes reset.
func (s *STABLE) ReceiveStable(members int) bool {
	s.stableReceived.Increment()
	if s.votes.Add(1) < int64(members) {
		return false
	}
	s.votes.Store(0)
	s.stabilitySent.Increment()
	return true
}

func (s *STABLE) ReceiveStability() {
	s.stabilityReceived.Increment()
}

func (s *STABLE) Suspend() { s.suspended.Store(true) }
func (s *STABLE) Resume()  { s.suspended.Store(false) }

func (s *STABLE) StableSent() int64        { return s.stableSent.Sum() }
func (s *STABLE) StableReceived() int64    { return s.stableReceived.Sum() }
func (s *STABLE) StabilitySent() int64     { return s.stabilitySent.Sum() }
func (s *STABLE) StabilityReceived() int64 { return s.stabilityReceived.Sum() }
func (s *STABLE) BytesReceived() int64     { return s.bytesReceived.Load() }
func (s *STABLE) Votes() int64             { return s.votes.Load() }
func (s *STABLE) IsSuspended() bool        { return s.suspended.Load() }
func (s *STABLE) StableTaskRunning() bool  { return s.taskRunning.Load() }
