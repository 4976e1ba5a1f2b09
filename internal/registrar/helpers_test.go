package registrar

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/routegate/internal/authority"
	"github.com/zjrosen/routegate/internal/domain/route"
)

// === Helper Functions ===

// mod builds a ModuleRouteSet from alternating path/method pairs.
func mod(id string, pairs ...string) route.ModuleRouteSet {
	s := route.ModuleRouteSet{ModuleID: id}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.Routes = append(s.Routes, route.Entry{Path: pairs[i], Method: pairs[i+1]})
	}
	return s
}

func newManifest(t *testing.T, sets ...route.ModuleRouteSet) route.Manifest {
	t.Helper()
	m, err := route.NewManifest(sets...)
	require.NoError(t, err)
	return m
}

// plainRegistry implements only the four Registry operations, so
// RegisterAll must take the has-then-set path.
type plainRegistry struct {
	mu       sync.Mutex
	bindings map[string]authority.Binding
}

func newPlainRegistry() *plainRegistry {
	return &plainRegistry{bindings: make(map[string]authority.Binding)}
}

func (r *plainRegistry) Has(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.bindings[path]
	return ok
}

func (r *plainRegistry) Get(path string) (authority.Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[path]
	return b, ok
}

func (r *plainRegistry) Set(path string, b authority.Binding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bindings[path]; ok {
		return authority.ErrPathBound
	}
	r.bindings[path] = b
	return nil
}

func (r *plainRegistry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bindings)
}

func (r *plainRegistry) Snapshot() map[string]authority.Binding {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]authority.Binding, len(r.bindings))
	for k, v := range r.bindings {
		out[k] = v
	}
	return out
}

// failingRegistry fails or panics on Set for chosen paths.
type failingRegistry struct {
	*plainRegistry
	failOn  map[string]error
	panicOn map[string]any
}

func (r *failingRegistry) Set(path string, b authority.Binding) error {
	if v, ok := r.panicOn[path]; ok {
		panic(v)
	}
	if err, ok := r.failOn[path]; ok {
		return err
	}
	return r.plainRegistry.Set(path, b)
}

// ownerlessRegistry reports every path as present but never returns a binding.
type ownerlessRegistry struct{}

func (ownerlessRegistry) Has(string) bool                      { return true }
func (ownerlessRegistry) Get(string) (authority.Binding, bool) { return authority.Binding{}, false }
func (ownerlessRegistry) Set(string, authority.Binding) error  { return nil }
func (ownerlessRegistry) Size() int                            { return 0 }

type snapshotRegistry interface {
	authority.Registry
	authority.Snapshotter
}

// registries runs fn against the claim-capable backends and the plain
// has-then-set registry.
func registries(t *testing.T, fn func(t *testing.T, newRegistry func() snapshotRegistry)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, func() snapshotRegistry { return authority.NewInMemoryRegistry() })
	})
	t.Run("cache", func(t *testing.T) {
		fn(t, func() snapshotRegistry { return authority.NewCacheRegistry() })
	})
	t.Run("plain", func(t *testing.T) {
		fn(t, func() snapshotRegistry { return newPlainRegistry() })
	})
}

// manifestGen draws a valid manifest whose paths come from a small alphabet,
// so collisions are frequent.
func manifestGen() *rapid.Generator[route.Manifest] {
	return rapid.Custom(func(t *rapid.T) route.Manifest {
		numModules := rapid.IntRange(0, 6).Draw(t, "numModules")
		sets := make([]route.ModuleRouteSet, numModules)
		for i := range sets {
			sets[i].ModuleID = fmt.Sprintf("m%d", i)
			numRoutes := rapid.IntRange(0, 8).Draw(t, "numRoutes")
			for j := 0; j < numRoutes; j++ {
				sets[i].Routes = append(sets[i].Routes, route.Entry{
					Path:   rapid.StringMatching(`[a-d]\.[a-d]`).Draw(t, "path"),
					Method: rapid.StringMatching(`[xyz]`).Draw(t, "method"),
				})
			}
		}
		m, err := route.NewManifest(sets...)
		if err != nil {
			t.Fatalf("generator produced invalid manifest: %v", err)
		}
		return m
	})
}

// distinctManifestGen draws a manifest with no repeated paths.
func distinctManifestGen() *rapid.Generator[route.Manifest] {
	return rapid.Custom(func(t *rapid.T) route.Manifest {
		numModules := rapid.IntRange(1, 6).Draw(t, "numModules")
		sets := make([]route.ModuleRouteSet, numModules)
		for i := range sets {
			sets[i].ModuleID = fmt.Sprintf("m%d", i)
			numRoutes := rapid.IntRange(0, 8).Draw(t, "numRoutes")
			for j := 0; j < numRoutes; j++ {
				sets[i].Routes = append(sets[i].Routes, route.Entry{
					Path:   fmt.Sprintf("mod%d.route%d", i, j),
					Method: rapid.StringMatching(`[a-z]{1,6}`).Draw(t, "method"),
				})
			}
		}
		m, err := route.NewManifest(sets...)
		if err != nil {
			t.Fatalf("generator produced invalid manifest: %v", err)
		}
		return m
	})
}
