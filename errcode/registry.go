package errcode

import (
	"fmt"
	"maps"
	"sync"
)

// Registry detects error code collisions between modules.
type Registry struct {
	mu    sync.RWMutex
	codes map[int]string // code -> module:msgKey
}

var globalRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{codes: make(map[int]string)}
}

// Register records err in the global registry. It panics on a collision,
// which happens at package initialization.
func Register(err *LayeredError) *LayeredError {
	return globalRegistry.Register(err)
}

// Register records err. Registering the same code and key twice is a no-op;
// the same code under a different key panics.
func (r *Registry) Register(err *LayeredError) *LayeredError {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := err.Module() + ":" + err.MsgKey()
	if existing, ok := r.codes[err.Code()]; ok {
		if existing != key {
			panic(fmt.Sprintf("error code conflict: code %d is already registered as %s, cannot register as %s",
				err.Code(), existing, key))
		}
		return err
	}

	r.codes[err.Code()] = key
	return err
}

func (r *Registry) GetAll() map[int]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.codes)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.codes)
}

// GetAllRegisteredCodes returns a snapshot of the global registry.
func GetAllRegisteredCodes() map[int]string {
	return globalRegistry.GetAll()
}
