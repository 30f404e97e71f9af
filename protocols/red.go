package protocols

import (
	"math"
	"math/rand/v2"

	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

// RED implements random early drop in front of the bundler queue.
type RED struct {
	Enabled       bool
	QueueCapacity int
	MinThreshold  float64 // fraction of QueueCapacity below which nothing is dropped
	MaxThreshold  float64 // fraction of QueueCapacity above which everything is dropped
	WeightFactor  float64 // weight of the newest sample in the moving average

	totalMsgs    observability.Adder
	droppedMsgs  observability.Adder
	avgQueueSize atomicFloat64
}

func NewRED(queueCapacity int) *RED {
	return &RED{
		Enabled:       true,
		QueueCapacity: queueCapacity,
		MinThreshold:  0.5,
		MaxThreshold:  1.0,
		WeightFactor:  1.0,
	}
}

func (*RED) TypeID() stack.TypeID { return TypeRED }

// Min is the queue size below which no message is dropped.
func (r *RED) Min() int64 {
	return int64(float64(r.QueueCapacity) * r.MinThreshold)
}

// Max is the queue size at or above which every message is dropped.
func (r *RED) Max() int64 {
	return int64(float64(r.QueueCapacity) * r.MaxThreshold)
}

// Offer records a message arriving while the bundler queue holds queueSize
// messages, and reports whether it is dropped.
func (r *RED) Offer(queueSize int) bool {
	r.totalMsgs.Increment()
	if !r.Enabled {
		return false
	}

	avg := (1-r.WeightFactor)*r.avgQueueSize.Load() + r.WeightFactor*float64(queueSize)
	r.avgQueueSize.Store(avg)

	lo, hi := float64(r.Min()), float64(r.Max())
	var drop bool
	switch {
	case avg <= lo:
		drop = false
	case avg >= hi:
		drop = true
	default:
		drop = rand.Float64() < (avg-lo)/(hi-lo)
	}
	if drop {
		r.droppedMsgs.Increment()
	}
	return drop
}

func (r *RED) TotalMessages() int64      { return r.totalMsgs.Sum() }
func (r *RED) DroppedMessages() int64    { return r.droppedMsgs.Sum() }
func (r *RED) AverageQueueSize() float64 { return r.avgQueueSize.Load() }

// DropRate is the ratio of dropped to total messages, 0 before any message.
func (r *RED) DropRate() float64 {
	total := r.totalMsgs.Sum()
	if total == 0 {
		return 0
	}
	rate := float64(r.droppedMsgs.Sum()) / float64(total)
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0
	}
	return rate
}
