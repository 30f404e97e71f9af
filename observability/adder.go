package observability

import "sync/atomic"

// Adder is a concurrent accumulator read through Sum.
// The zero value is ready to use.
type Adder struct {
	v atomic.Int64
}

func (a *Adder) Add(n int64) {
	a.v.Add(n)
}

func (a *Adder) Increment() {
	a.v.Add(1)
}

func (a *Adder) Sum() int64 {
	return a.v.Load()
}

func (a *Adder) Reset() {
	a.v.Store(0)
}
