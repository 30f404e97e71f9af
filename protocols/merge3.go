package protocols

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rhusar/jgroups-opentelemetry/stack"
)

// Merge3 detects subgroups through periodic info messages and triggers merges.
type Merge3 struct {
	MinInterval            time.Duration
	MaxInterval            time.Duration
	CheckInterval          time.Duration
	MaxParticipantsInMerge int // 0 = unlimited

	mu    sync.RWMutex
	views map[string]string // sender -> view id

	mergeEvents             atomic.Int64
	viewConsistencyChecking atomic.Bool
	infoSenderRunning       atomic.Bool
}

func NewMerge3() *Merge3 {
	return &Merge3{
		MinInterval:            1000 * time.Millisecond,
		MaxInterval:            10000 * time.Millisecond,
		CheckInterval:          15000 * time.Millisecond,
		MaxParticipantsInMerge: 100,
		views:                  make(map[string]string),
	}
}

func (*Merge3) TypeID() stack.TypeID { return TypeMerge3 }

func (m *Merge3) Start() error {
	m.viewConsistencyChecking.Store(true)
	m.infoSenderRunning.Store(true)
	return nil
}

func (m *Merge3) Stop() {
	m.viewConsistencyChecking.Store(false)
	m.infoSenderRunning.Store(false)
}

// AddInfo caches the view id announced by sender.
func (m *Merge3) AddInfo(sender, viewID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views[sender] = viewID
}

// CheckInconsistencies counts the distinct cached view ids, clears the cache
// and records a merge event when more than one subgroup was seen.
func (m *Merge3) CheckInconsistencies() bool {
	m.mu.Lock()
	distinct := make(map[string]struct{}, len(m.views))
	for _, v := range m.views {
		distinct[v] = struct{}{}
	}
	clear(m.views)
	m.mu.Unlock()

	if len(distinct) > 1 {
		m.mergeEvents.Add(1)
		return true
	}
	return false
}

// ViewsCached returns the number of view ids cached from other subgroups.
func (m *Merge3) ViewsCached() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.views)
}

func (m *Merge3) MergeEvents() int64                  { return m.mergeEvents.Load() }
func (m *Merge3) ViewConsistencyCheckerRunning() bool { return m.viewConsistencyChecking.Load() }
func (m *Merge3) InfoSenderRunning() bool             { return m.infoSenderRunning.Load() }
