package authority

import (
	"fmt"
	"maps"
	"sync"
)

// MemoryRegistry is a thread-safe map implementation of Registry.
type MemoryRegistry struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

// NewInMemoryRegistry creates an empty in-memory Registry.
func NewInMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		bindings: make(map[string]Binding),
	}
}

// Has reports whether path is bound.
func (r *MemoryRegistry) Has(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.bindings[path]
	return ok
}

// Get returns the binding for path.
func (r *MemoryRegistry) Get(path string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[path]
	return b, ok
}

// Set binds path, refusing to overwrite.
func (r *MemoryRegistry) Set(path string, b Binding) error {
	if path == "" {
		return ErrEmptyPath
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, exists := r.bindings[path]; exists {
		return fmt.Errorf("%w: %s owned by %s", ErrPathBound, path, owner)
	}
	r.bindings[path] = b
	return nil
}

// Claim binds path unless it is already bound.
func (r *MemoryRegistry) Claim(path string, b Binding) (Binding, bool, error) {
	if path == "" {
		return Binding{}, false, ErrEmptyPath
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, exists := r.bindings[path]; exists {
		return owner, false, nil
	}
	r.bindings[path] = b
	return b, true, nil
}

// Size returns the number of bound paths.
func (r *MemoryRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}

// Snapshot returns a copy of every binding.
func (r *MemoryRegistry) Snapshot() map[string]Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.bindings)
}
