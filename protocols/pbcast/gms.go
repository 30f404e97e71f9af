// Package pbcast holds the group membership and stability protocols.
package pbcast

import (
	"sync/atomic"
	"time"

	"github.com/rhusar/jgroups-opentelemetry/stack"
)

const (
	TypeGMS     stack.TypeID = stack.RootNamespace + "pbcast.GMS"
	TypeSTABLE  stack.TypeID = stack.RootNamespace + "pbcast.STABLE"
	TypeNAKACK2 stack.TypeID = stack.RootNamespace + "pbcast.NAKACK2"
)

// GMS is the group membership service.
type GMS struct {
	JoinTimeout              time.Duration
	LeaveTimeout             time.Duration
	MergeTimeout             time.Duration
	ViewAckCollectionTimeout time.Duration // 0 waits forever
	MaxJoinAttempts          int           // 0 never gives up

	numViews atomic.Int64
	coord    atomic.Bool
	leaving  atomic.Bool

	merging            atomic.Bool
	mergeTaskRunning   atomic.Bool
	mergeKillerRunning atomic.Bool

	viewHandlerQueue     atomic.Int64
	viewHandlerSuspended atomic.Bool
}

func NewGMS() *GMS {
	return &GMS{
		JoinTimeout:              2000 * time.Millisecond,
		LeaveTimeout:             2000 * time.Millisecond,
		MergeTimeout:             5000 * time.Millisecond,
		ViewAckCollectionTimeout: 2000 * time.Millisecond,
		MaxJoinAttempts:          10,
	}
}

func (*GMS) TypeID() stack.TypeID { return TypeGMS }

// InstallView records a new view; coord tells whether this member coordinates it.
func (g *GMS) InstallView(coord bool) {
	g.numViews.Add(1)
	g.coord.Store(coord)
}

func (g *GMS) Leave() {
	g.leaving.Store(true)
}

// BeginMerge marks a merge as in progress, with its task and killer running.
func (g *GMS) BeginMerge() {
	g.merging.Store(true)
	g.mergeTaskRunning.Store(true)
	g.mergeKillerRunning.Store(true)
}

func (g *GMS) EndMerge() {
	g.merging.Store(false)
	g.mergeTaskRunning.Store(false)
	g.mergeKillerRunning.Store(false)
}

// Enqueue adds a JOIN, LEAVE or SUSPECT request to the view handler.
func (g *GMS) Enqueue() {
	g.viewHandlerQueue.Add(1)
}

// Process removes up to n requests from the view handler queue.
func (g *GMS) Process(n int) {
	for {
		cur := g.viewHandlerQueue.Load()
		next := max(0, cur-int64(n))
		if g.viewHandlerQueue.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (g *GMS) SuspendViewHandler() { g.viewHandlerSuspended.Store(true) }
func (g *GMS) ResumeViewHandler()  { g.viewHandlerSuspended.Store(false) }

func (g *GMS) NumViews() int64              { return g.numViews.Load() }
func (g *GMS) IsCoord() bool                { return g.coord.Load() }
func (g *GMS) IsLeaving() bool              { return g.leaving.Load() }
func (g *GMS) IsMergeInProgress() bool      { return g.merging.Load() }
func (g *GMS) IsMergeTaskRunning() bool     { return g.mergeTaskRunning.Load() }
func (g *GMS) IsMergeKillerRunning() bool   { return g.mergeKillerRunning.Load() }
func (g *GMS) ViewHandlerQueue() int64      { return g.viewHandlerQueue.Load() }
func (g *GMS) IsViewHandlerSuspended() bool { return g.viewHandlerSuspended.Load() }
