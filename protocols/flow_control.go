package protocols

import (
	"sync/atomic"
	"time"

	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

const (
	defaultMaxCredits   = 5_000_000
	defaultMinThreshold = 0.40
	defaultMaxBlockTime = 500 * time.Millisecond
)

// FlowControl is the credit-based flow control state shared by UFC and MFC.
type FlowControl struct {
	MaxCredits   int64
	MinCredits   int64
	MinThreshold float64 // fraction of MaxCredits
	MaxBlockTime time.Duration

	creditRequestsReceived  observability.Adder
	creditRequestsSent      observability.Adder
	creditResponsesReceived observability.Adder
	creditResponsesSent     observability.Adder

	blockings    atomic.Int64
	blockedNanos atomic.Int64
}

func (f *FlowControl) setDefaults() {
	f.MaxCredits = defaultMaxCredits
	f.MinThreshold = defaultMinThreshold
	f.MinCredits = int64(defaultMaxCredits * defaultMinThreshold)
	f.MaxBlockTime = defaultMaxBlockTime
}

// Flow returns the shared flow control state.
func (f *FlowControl) Flow() *FlowControl {
	return f
}

func (f *FlowControl) CreditRequestsReceived() int64  { return f.creditRequestsReceived.Sum() }
func (f *FlowControl) CreditRequestsSent() int64      { return f.creditRequestsSent.Sum() }
func (f *FlowControl) CreditResponsesReceived() int64 { return f.creditResponsesReceived.Sum() }
func (f *FlowControl) CreditResponsesSent() int64     { return f.creditResponsesSent.Sum() }

// NumberOfBlockings returns how often a sender blocked waiting for credits.
func (f *FlowControl) NumberOfBlockings() int64 {
	return f.blockings.Load()
}

// AverageTimeBlocked returns the average blocking time expressed in unit,
// e.g. time.Millisecond. It is 0 before the first blocking.
func (f *FlowControl) AverageTimeBlocked(unit time.Duration) float64 {
	n := f.blockings.Load()
	if n == 0 || unit <= 0 {
		return 0
	}
	return float64(f.blockedNanos.Load()) / float64(n) / float64(unit)
}

// RecordBlocked records a sender blocked for d.
func (f *FlowControl) RecordBlocked(d time.Duration) {
	f.blockings.Add(1)
	f.blockedNanos.Add(int64(d))
}

// RecordCreditRequest records a credit request sent to, or received from, a peer.
func (f *FlowControl) RecordCreditRequest(sent bool) {
	if sent {
		f.creditRequestsSent.Increment()
		return
	}
	f.creditRequestsReceived.Increment()
}

// RecordCreditResponse records credits sent to, or received from, a peer.
func (f *FlowControl) RecordCreditResponse(sent bool) {
	if sent {
		f.creditResponsesSent.Increment()
		return
	}
	f.creditResponsesReceived.Increment()
}

// UFC is unicast flow control. Its blocking times are reported in milliseconds.
type UFC struct{ FlowControl }

func NewUFC() *UFC {
	u := &UFC{}
	u.setDefaults()
	return u
}

func (*UFC) TypeID() stack.TypeID { return TypeUFC }

// MFC is multicast flow control. Its blocking times are reported in nanoseconds.
type MFC struct{ FlowControl }

func NewMFC() *MFC {
	m := &MFC{}
	m.setDefaults()
	return m
}

func (*MFC) TypeID() stack.TypeID { return TypeMFC }
