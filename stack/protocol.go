// Package stack models the layered protocol stack being instrumented:
// protocol type identities, the ordered protocol list and the cluster
// and node it belongs to.
package stack

import "strings"

// RootNamespace is the namespace shared by all protocol types.
const RootNamespace = "org.jgroups.protocols."

// AnyProtocol is the type identity every protocol matches.
const AnyProtocol TypeID = "org.jgroups.stack.Protocol"

// TypeID is the dotted, fully qualified type identity of a protocol,
// e.g. "org.jgroups.protocols.pbcast.GMS".
type TypeID string

// Name returns the last segment of the identity, e.g. "GMS".
func (t TypeID) Name() string {
	s := string(t)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Relative returns the identity with RootNamespace stripped,
// e.g. "pbcast.GMS". Identities outside the namespace are returned whole.
func (t TypeID) Relative() string {
	return strings.TrimPrefix(string(t), RootNamespace)
}

func (t TypeID) String() string {
	return string(t)
}

// Protocol is a layer of the stack.
type Protocol interface {
	TypeID() TypeID
}

// Message is the unit of traffic passing through the stack.
type Message interface {
	// Length is the payload length in bytes.
	Length() int
	// Size is the total serialized size in bytes, headers included.
	Size() int
}

// UpHandler receives messages travelling up the stack.
type UpHandler interface {
	Up(msg Message)
}

// DownHandler receives messages travelling down the stack.
type DownHandler interface {
	Down(msg Message)
}

// Lifecycle is implemented by protocols that hold resources.
type Lifecycle interface {
	Start() error
	Stop()
}

// BytesMessage is a Message carrying a byte payload.
type BytesMessage struct {
	Payload    []byte
	HeaderSize int
}

// NewMessage returns a message with payload and no headers.
func NewMessage(payload []byte) *BytesMessage {
	return &BytesMessage{Payload: payload}
}

func (m *BytesMessage) Length() int {
	return len(m.Payload)
}

func (m *BytesMessage) Size() int {
	return len(m.Payload) + m.HeaderSize
}
