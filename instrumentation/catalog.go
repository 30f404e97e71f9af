package instrumentation

import (
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

// Instrumentation registers the metrics of one protocol type.
type Instrumentation interface {
	// Target is the protocol type handled, or stack.AnyProtocol for the fallback.
	Target() stack.TypeID
	RegisterMetrics(ctx *Context) error
}

// Catalog maps protocol types to their instrumentation. It is immutable.
type Catalog struct {
	byTarget map[stack.TypeID]Instrumentation
	fallback Instrumentation
	targets  []stack.TypeID
}

// NewCatalog builds a catalog. Two instrumentations with the same target,
// the fallback included, are rejected with ErrDuplicateInstrumentation.
func NewCatalog(impls ...Instrumentation) (*Catalog, error) {
	c := &Catalog{byTarget: make(map[stack.TypeID]Instrumentation, len(impls))}
	for i, impl := range impls {
		if impl == nil {
			return nil, ErrNilInstrumentation.WithData("index", i)
		}
		target := impl.Target()
		if target == "" {
			return nil, ErrUnknownProtocol.WithMsgf("instrumentation %T has no target", impl)
		}
		if _, ok := c.byTarget[target]; ok {
			return nil, ErrDuplicateInstrumentation.WithMsgf("duplicate instrumentation for %s", target)
		}
		c.byTarget[target] = impl
		c.targets = append(c.targets, target)
		if target == stack.AnyProtocol {
			c.fallback = impl
		}
	}
	return c, nil
}

// Lookup returns the specific instrumentation of id, if any.
// The fallback is never returned here.
func (c *Catalog) Lookup(id stack.TypeID) (Instrumentation, bool) {
	if c == nil || id == stack.AnyProtocol {
		return nil, false
	}
	impl, ok := c.byTarget[id]
	return impl, ok
}

// Fallback returns the instrumentation targeting stack.AnyProtocol, or nil.
func (c *Catalog) Fallback() Instrumentation {
	if c == nil {
		return nil
	}
	return c.fallback
}

// Targets returns the targets in registration order.
func (c *Catalog) Targets() []stack.TypeID {
	if c == nil {
		return nil
	}
	return append([]stack.TypeID(nil), c.targets...)
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.targets)
}
