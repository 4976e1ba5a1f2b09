package authority

import (
	"fmt"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/routegate/internal/log"
)

// CacheRegistry is a Registry backed by go-cache. Bindings never expire and
// the janitor is disabled. go-cache's Add is an atomic add-if-absent, which
// gives Claim compare-and-set semantics without an extra lock.
type CacheRegistry struct {
	cache *gocache.Cache
}

// NewCacheRegistry creates an empty go-cache backed Registry.
func NewCacheRegistry() *CacheRegistry {
	return &CacheRegistry{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Has reports whether path is bound.
func (r *CacheRegistry) Has(path string) bool {
	_, found := r.cache.Get(path)
	return found
}

// Get returns the binding for path.
func (r *CacheRegistry) Get(path string) (Binding, bool) {
	value, found := r.cache.Get(path)
	if !found {
		return Binding{}, false
	}

	b, ok := value.(Binding)
	if !ok {
		log.Error(log.CatRegistry, "wrong type assertion when getting binding", "path", path)
		return Binding{}, false
	}
	return b, true
}

// Set binds path, refusing to overwrite.
func (r *CacheRegistry) Set(path string, b Binding) error {
	if path == "" {
		return ErrEmptyPath
	}
	if err := r.cache.Add(path, b, gocache.NoExpiration); err != nil {
		owner, _ := r.Get(path)
		return fmt.Errorf("%w: %s owned by %s", ErrPathBound, path, owner)
	}
	return nil
}

// Claim binds path unless it is already bound.
func (r *CacheRegistry) Claim(path string, b Binding) (Binding, bool, error) {
	if path == "" {
		return Binding{}, false, ErrEmptyPath
	}
	if err := r.cache.Add(path, b, gocache.NoExpiration); err != nil {
		owner, ok := r.Get(path)
		if !ok {
			return Binding{}, false, fmt.Errorf("claim %s: %w", path, err)
		}
		return owner, false, nil
	}
	return b, true, nil
}

// Size returns the number of bound paths.
func (r *CacheRegistry) Size() int {
	return r.cache.ItemCount()
}

// Snapshot returns a copy of every binding.
func (r *CacheRegistry) Snapshot() map[string]Binding {
	items := r.cache.Items()
	out := make(map[string]Binding, len(items))
	for path, item := range items {
		if b, ok := item.Object.(Binding); ok {
			out[path] = b
		}
	}
	return out
}
