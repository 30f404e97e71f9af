// Package observability declares the metric metadata attached to protocol state.
//
// A protocol publishes its observable state through a Schema: a static list of
// items, each pairing an accessor with a Declaration. Schemas of derived
// protocols include the items of their base explicitly through Inherit.
package observability

// Kind is the instrument kind of a declared item.
type Kind int

const (
	Counter Kind = iota + 1
	UpDownCounter
	Gauge
	Histogram
)

func (k Kind) String() string {
	switch k {
	case Counter:
		return "counter"
	case UpDownCounter:
		return "up_down_counter"
	case Gauge:
		return "gauge"
	case Histogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// Unit is the measurement unit of a declared item.
type Unit int

const (
	Unity Unit = iota
	Dimensionless
	Messages
	Bytes
	Connections
	Requests
	Acks
	Operations
	Members
	Milliseconds
	Nanoseconds
	Seconds
)

var ucum = [...]string{
	Unity:         "1",
	Dimensionless: "1",
	Messages:      "{messages}",
	Bytes:         "By",
	Connections:   "{connections}",
	Requests:      "{requests}",
	Acks:          "{acks}",
	Operations:    "{operations}",
	Members:       "{members}",
	Milliseconds:  "ms",
	Nanoseconds:   "ns",
	Seconds:       "s",
}

// UCUM returns the unit code reported to the backend. Unknown units report "1".
func (u Unit) UCUM() string {
	if u < 0 || int(u) >= len(ucum) {
		return "1"
	}
	return ucum[u]
}

func (u Unit) String() string {
	return u.UCUM()
}

// Scope controls when an item is exported.
type Scope int

const (
	// Runtime items are always exported.
	Runtime Scope = iota
	// Configuration items are exported only when configuration metrics are enabled.
	Configuration
)

func (s Scope) String() string {
	if s == Configuration {
		return "configuration"
	}
	return "runtime"
}

// Declaration describes how one state item is exported.
// An empty Name means the name is derived from the item's field name.
type Declaration struct {
	Name        string
	Kind        Kind
	Unit        Unit
	Description string
	Scope       Scope
}
