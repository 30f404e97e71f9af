// Package protocols holds the observable state of the stack's protocols.
//
// The types here carry counters, flags and configuration only. Membership,
// retransmission and flow-control algorithms live in the host stack; it
// reports events through the Record*/On* style methods, and the metrics
// bridge reads the accessors concurrently.
package protocols

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/rhusar/jgroups-opentelemetry/stack"
)

const (
	TypePing               stack.TypeID = stack.RootNamespace + "PING"
	TypeMPing              stack.TypeID = stack.RootNamespace + "MPING"
	TypeBPing              stack.TypeID = stack.RootNamespace + "BPING"
	TypeTCPPing            stack.TypeID = stack.RootNamespace + "TCPPING"
	TypeTCPGossip          stack.TypeID = stack.RootNamespace + "TCPGOSSIP"
	TypeLocalPing          stack.TypeID = stack.RootNamespace + "LOCAL_PING"
	TypeSharedLoopbackPing stack.TypeID = stack.RootNamespace + "SHARED_LOOPBACK_PING"
	TypeFilePing           stack.TypeID = stack.RootNamespace + "FILE_PING"
	TypeJDBCPing           stack.TypeID = stack.RootNamespace + "JDBC_PING"
	TypeJDBCPing2          stack.TypeID = stack.RootNamespace + "JDBC_PING2"
	TypeRackspacePing      stack.TypeID = stack.RootNamespace + "RACKSPACE_PING"
	TypeSwiftPing          stack.TypeID = stack.RootNamespace + "SWIFT_PING"
	TypeUFC                stack.TypeID = stack.RootNamespace + "UFC"
	TypeMFC                stack.TypeID = stack.RootNamespace + "MFC"
	TypeUnicast3           stack.TypeID = stack.RootNamespace + "UNICAST3"
	TypeFDAll              stack.TypeID = stack.RootNamespace + "FD_ALL"
	TypeFDAll2             stack.TypeID = stack.RootNamespace + "FD_ALL2"
	TypeFDAll3             stack.TypeID = stack.RootNamespace + "FD_ALL3"
	TypeFDSock             stack.TypeID = stack.RootNamespace + "FD_SOCK"
	TypeFDSock2            stack.TypeID = stack.RootNamespace + "FD_SOCK2"
	TypeMerge3             stack.TypeID = stack.RootNamespace + "MERGE3"
	TypeRED                stack.TypeID = stack.RootNamespace + "RED"
	TypeVerifySuspect2     stack.TypeID = stack.RootNamespace + "VERIFY_SUSPECT2"
	TypeObservable         stack.TypeID = stack.RootNamespace + "OBSERVABLE"
	TypeSharedLoopback     stack.TypeID = stack.RootNamespace + "SHARED_LOOPBACK"
)

// atomicFloat64 stores a float64 in an atomic.Uint64.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (f *atomicFloat64) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat64) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

// memberSet is a concurrent set of member names.
type memberSet struct {
	mu      sync.RWMutex
	members map[string]struct{}
}

// add reports whether member was not present yet.
func (s *memberSet) add(member string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members == nil {
		s.members = make(map[string]struct{})
	}
	if _, ok := s.members[member]; ok {
		return false
	}
	s.members[member] = struct{}{}
	return true
}

func (s *memberSet) remove(member string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, member)
}

func (s *memberSet) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.members)
}

func (s *memberSet) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

func (s *memberSet) contains(member string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[member]
	return ok
}
