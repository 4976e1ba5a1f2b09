// Package authority provides the path → binding store that route
// registration writes into and the gateway resolves from.
package authority

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPathBound indicates Set was called for a path that already has a binding.
	ErrPathBound = errors.New("path already bound")
	// ErrEmptyPath indicates an empty path was passed to Set or Claim.
	ErrEmptyPath = errors.New("path cannot be empty")
	// ErrUnknownBackend indicates New was called with an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown registry backend")
)

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendCache  = "cache"
)

// Binding is the resolved owner of a path.
type Binding struct {
	ModuleID string
	Method   string
}

// IsZero reports whether b is the zero binding.
func (b Binding) IsZero() bool {
	return b.ModuleID == "" && b.Method == ""
}

func (b Binding) String() string {
	return b.ModuleID + "#" + b.Method
}

// Registry stores path bindings. Keys are unique; the store only grows.
// Implementations must be thread-safe for concurrent access.
type Registry interface {
	// Has reports whether path is bound.
	Has(path string) bool

	// Get returns the binding for path, and false if it is unbound.
	Get(path string) (Binding, bool)

	// Set binds path. Returns ErrPathBound if path already has a binding.
	Set(path string, b Binding) error

	// Size returns the number of bound paths.
	Size() int
}

// Claimer is implemented by registries that can bind a path atomically only
// if it is unbound. Registration uses it when available so that concurrent
// passes against one registry keep first-writer-wins.
type Claimer interface {
	// Claim binds path to b unless it is already bound. It returns the binding
	// that owns path after the call and whether b was stored.
	Claim(path string, b Binding) (owner Binding, stored bool, err error)
}

// Snapshotter is implemented by registries that can copy out every binding.
type Snapshotter interface {
	Snapshot() map[string]Binding
}

// New returns an empty registry for the named backend. An empty name selects
// the in-memory map.
func New(backend string) (Registry, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return NewInMemoryRegistry(), nil
	case BackendCache:
		return NewCacheRegistry(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

var (
	_ Registry    = (*MemoryRegistry)(nil)
	_ Claimer     = (*MemoryRegistry)(nil)
	_ Snapshotter = (*MemoryRegistry)(nil)
	_ Registry    = (*CacheRegistry)(nil)
	_ Claimer     = (*CacheRegistry)(nil)
	_ Snapshotter = (*CacheRegistry)(nil)
)
