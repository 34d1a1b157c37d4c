package module

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a fresh instance for a format.
type Constructor func() any

// Factory resolves a format id to a module instance.
type Factory interface {
	Lookup(formatID string) (any, error)
}

// Registry is a Factory built explicitly at startup.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register binds formatID to ctor, replacing any previous binding.
func (r *Registry) Register(formatID string, ctor Constructor) {
	r.mu.Lock()
	r.ctors[formatID] = ctor
	r.mu.Unlock()
}

// Lookup implements Factory.
func (r *Registry) Lookup(formatID string) (any, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[formatID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, formatID)
	}
	return ctor(), nil
}

// Formats returns the registered format ids, sorted.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for id := range r.ctors {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
