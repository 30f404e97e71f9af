package stack

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rhusar/jgroups-opentelemetry/errcode"
)

const ModuleCode = 62

var (
	ErrAlreadyConnected = errcode.Register(errcode.New(ModuleCode, 1,
		"stack", "error.stack.already_connected", "stack already connected"))
	ErrEmptyClusterName = errcode.Register(errcode.New(ModuleCode, 2,
		"stack", "error.stack.empty_cluster_name", "cluster name must not be empty"))
	ErrProtocolStart = errcode.Register(errcode.New(ModuleCode, 3,
		"stack", "error.stack.protocol_start", "protocol failed to start"))
)

// Stack is an ordered list of protocols, bottom (transport) first.
type Stack struct {
	mu        sync.RWMutex
	protocols []Protocol
	cluster   string
	node      string
	connected bool
}

// New returns a stack of protocols listed bottom first.
func New(protocols ...Protocol) *Stack {
	return &Stack{protocols: slices.Clone(protocols)}
}

// SetName sets the node name used when connecting.
func (s *Stack) SetName(node string) *Stack {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.node = node
	return s
}

// Connect joins cluster. Protocols implementing Lifecycle are started bottom up;
// on failure the ones already started are stopped again.
// A node without a name gets a random one.
func (s *Stack) Connect(cluster string) error {
	if cluster == "" {
		return ErrEmptyClusterName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return ErrAlreadyConnected.WithData("cluster", s.cluster)
	}

	for i, p := range s.protocols {
		l, ok := p.(Lifecycle)
		if !ok {
			continue
		}
		if err := l.Start(); err != nil {
			stopAll(s.protocols[:i])
			return ErrProtocolStart.WithMsgf("protocol %s failed to start", p.TypeID().Name()).Wrap(err)
		}
	}

	if s.node == "" {
		s.node = uuid.NewString()
	}
	s.cluster = cluster
	s.connected = true
	return nil
}

// Disconnect stops the protocols top down. Calling it twice is a no-op.
func (s *Stack) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return
	}
	stopAll(s.protocols)
	s.connected = false
}

func stopAll(protocols []Protocol) {
	for i := len(protocols) - 1; i >= 0; i-- {
		if l, ok := protocols[i].(Lifecycle); ok {
			l.Stop()
		}
	}
}

func (s *Stack) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Stack) ClusterName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cluster
}

func (s *Stack) NodeName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.node
}

// Protocols returns the protocols in stack order, bottom first.
func (s *Stack) Protocols() []Protocol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.protocols)
}

// FindProtocol returns the first protocol of type id, or nil.
func (s *Stack) FindProtocol(id TypeID) Protocol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.protocols {
		if p.TypeID() == id {
			return p
		}
	}
	return nil
}

// Down passes msg to every DownHandler from the top of the stack to the bottom.
func (s *Stack) Down(msg Message) {
	protocols := s.Protocols()
	for i := len(protocols) - 1; i >= 0; i-- {
		if h, ok := protocols[i].(DownHandler); ok {
			h.Down(msg)
		}
	}
}

// Up passes msg to every UpHandler from the bottom of the stack to the top.
func (s *Stack) Up(msg Message) {
	for _, p := range s.Protocols() {
		if h, ok := p.(UpHandler); ok {
			h.Up(msg)
		}
	}
}
