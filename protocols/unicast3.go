package protocols

import (
	"sync"

	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

type sendEntry struct {
	unacked int
}

type receiveEntry struct {
	missing     int
	undelivered int
}

// Unicast3 is the reliable unicast protocol's per-connection bookkeeping.
type Unicast3 struct {
	msgsSent      observability.Adder
	msgsReceived  observability.Adder
	xmits         observability.Adder
	xmitReqsSent  observability.Adder
	xmitReqsRecvd observability.Adder
	acksSent      observability.Adder
	acksReceived  observability.Adder

	mu   sync.RWMutex
	send map[string]*sendEntry
	recv map[string]*receiveEntry
}

func NewUnicast3() *Unicast3 {
	return &Unicast3{
		send: make(map[string]*sendEntry),
		recv: make(map[string]*receiveEntry),
	}
}

func (*Unicast3) TypeID() stack.TypeID { return TypeUnicast3 }

// Send records a message sent to dest, opening a send connection if needed.
func (u *Unicast3) Send(dest string) {
	u.mu.Lock()
	e, ok := u.send[dest]
	if !ok {
		e = &sendEntry{}
		u.send[dest] = e
	}
	e.unacked++
	u.mu.Unlock()
	u.msgsSent.Increment()
}

// Ack records an ack from dest covering n messages.
func (u *Unicast3) Ack(dest string, n int) {
	u.mu.Lock()
	if e, ok := u.send[dest]; ok {
		e.unacked = max(0, e.unacked-n)
	}
	u.mu.Unlock()
	u.acksReceived.Increment()
}

// Receive records a message from sender that is not yet delivered.
func (u *Unicast3) Receive(sender string) {
	u.mu.Lock()
	u.receiveEntry(sender).undelivered++
	u.mu.Unlock()
	u.msgsReceived.Increment()
}

// Deliver records n messages from sender delivered to the application, and the ack sent for them.
func (u *Unicast3) Deliver(sender string, n int) {
	u.mu.Lock()
	if e, ok := u.recv[sender]; ok {
		e.undelivered = max(0, e.undelivered-n)
	}
	u.mu.Unlock()
	u.acksSent.Increment()
}

// Gap records that missing messages from sender were detected and requested again.
func (u *Unicast3) Gap(sender string, missing int) {
	u.mu.Lock()
	u.receiveEntry(sender).missing = missing
	u.mu.Unlock()
	u.xmitReqsSent.Increment()
}

// Retransmit records a retransmission requested by dest.
func (u *Unicast3) Retransmit(dest string) {
	u.xmitReqsRecvd.Increment()
	u.xmits.Increment()
}

// CloseConnection removes both connections with member.
func (u *Unicast3) CloseConnection(member string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.send, member)
	delete(u.recv, member)
}

// receiveEntry must be called with mu held.
func (u *Unicast3) receiveEntry(sender string) *receiveEntry {
	e, ok := u.recv[sender]
	if !ok {
		e = &receiveEntry{}
		u.recv[sender] = e
	}
	return e
}

func (u *Unicast3) MessagesSent() int64         { return u.msgsSent.Sum() }
func (u *Unicast3) MessagesReceived() int64     { return u.msgsReceived.Sum() }
func (u *Unicast3) Retransmissions() int64      { return u.xmits.Sum() }
func (u *Unicast3) XmitRequestsSent() int64     { return u.xmitReqsSent.Sum() }
func (u *Unicast3) XmitRequestsReceived() int64 { return u.xmitReqsRecvd.Sum() }
func (u *Unicast3) AcksSent() int64             { return u.acksSent.Sum() }
func (u *Unicast3) AcksReceived() int64         { return u.acksReceived.Sum() }

func (u *Unicast3) NumConnections() int {
	return u.NumSendConnections() + u.NumReceiveConnections()
}

func (u *Unicast3) NumSendConnections() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.send)
}

func (u *Unicast3) NumReceiveConnections() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.recv)
}

// NumUnackedMessages sums the unacknowledged messages of all send connections.
func (u *Unicast3) NumUnackedMessages() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	n := 0
	for _, e := range u.send {
		n += e.unacked
	}
	return n
}

func (u *Unicast3) XmitTableMissingMessages() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	n := 0
	for _, e := range u.recv {
		n += e.missing
	}
	return n
}

func (u *Unicast3) XmitTableUndeliveredMessages() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	n := 0
	for _, e := range u.recv {
		n += e.undelivered
	}
	return n
}
