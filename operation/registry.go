package operation

import (
	"errors"
	"sync"
)

// ErrNotFound indicates the requested operation ID is not registered.
var ErrNotFound = errors.New("operation: not found")

// Registry tracks in-flight and completed operations by ID so callers
// can inspect results after the fact. Entries live until process exit.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]*Result
}

// NewRegistry creates an empty operation registry.
func NewRegistry() *Registry {
	return &Registry{
		ops: make(map[string]*Result),
	}
}

// CreateOperation allocates a fresh pending result of the given kind
// and registers it.
func (r *Registry) CreateOperation(kind string) *Result {
	res := NewResult(kind)

	r.mu.Lock()
	r.ops[res.ID()] = res
	r.mu.Unlock()

	return res
}

// Get returns the operation with the given ID.
func (r *Registry) Get(id string) (*Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.ops[id]
	if !ok {
		return nil, ErrNotFound
	}
	return res, nil
}

// List returns every registered operation. Order is unspecified.
func (r *Registry) List() []*Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Result, 0, len(r.ops))
	for _, res := range r.ops {
		out = append(out, res)
	}
	return out
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}
