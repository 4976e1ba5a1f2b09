package registrar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/routegate/internal/authority"
	"github.com/zjrosen/routegate/internal/domain/route"
)

// === Unit Tests: registration outcomes ===

func TestRegisterAll_CollisionFreeRegistersEverything(t *testing.T) {
	registries(t, func(t *testing.T, newRegistry func() snapshotRegistry) {
		m := newManifest(t,
			mod("engine.svd",
				"engine.svd.calculate", "calculate",
				"engine.svd.decompose", "decompose",
				"engine.svd.rank", "rank",
				"engine.svd.solve", "solve",
				"engine.svd.pinv", "pinv",
				"engine.svd.condition", "condition",
			),
			mod("calc.speed",
				"calc.speed.feed", "feed",
				"calc.speed.rpm", "rpm",
				"calc.speed.surface", "surface",
				"calc.speed.chipload", "chipload",
				"calc.speed.mrr", "mrr",
				"calc.speed.power", "power",
			),
		)
		reg := newRegistry()

		stats := RegisterAll(context.Background(), m, reg)

		require.Equal(t, 2, stats.ModulesProcessed)
		require.Equal(t, 12, stats.Registered)
		require.Equal(t, 0, stats.Skipped)
		require.Equal(t, 0, stats.Errors)
		require.Empty(t, stats.Collisions)
		require.Empty(t, stats.Failures)
		require.Equal(t, 12, reg.Size())
		require.NotEmpty(t, stats.RunID)
	})
}

func TestRegisterAll_FirstWriterWins(t *testing.T) {
	registries(t, func(t *testing.T, newRegistry func() snapshotRegistry) {
		m := newManifest(t,
			mod("M1", "a.b", "x"),
			mod("M2", "a.b", "y"),
		)
		reg := newRegistry()

		stats := RegisterAll(context.Background(), m, reg)

		require.Equal(t, 1, stats.Registered)
		require.Equal(t, 1, stats.Skipped)
		require.Equal(t, 0, stats.Errors)

		got, ok := reg.Get("a.b")
		require.True(t, ok)
		require.Equal(t, authority.Binding{ModuleID: "M1", Method: "x"}, got)

		require.Equal(t, []Collision{{
			Path:     "a.b",
			ModuleID: "M2",
			Method:   "y",
			Owner:    authority.Binding{ModuleID: "M1", Method: "x"},
			Reason:   SkipShadowed,
		}}, stats.Collisions)
		require.Equal(t, 1, stats.Shadowed())
		require.Equal(t, 0, stats.Redeclared())
	})
}

func TestRegisterAll_SelfRedeclarationIsDistinguished(t *testing.T) {
	registries(t, func(t *testing.T, newRegistry func() snapshotRegistry) {
		m := newManifest(t,
			mod("M1", "a.b", "x", "a.b", "other"),
		)
		reg := newRegistry()

		stats := RegisterAll(context.Background(), m, reg)

		require.Equal(t, 1, stats.Registered)
		require.Equal(t, 1, stats.Skipped)
		require.Len(t, stats.Collisions, 1)
		require.Equal(t, SkipRedeclared, stats.Collisions[0].Reason)
		require.Equal(t, "other", stats.Collisions[0].Method)
		require.Equal(t, authority.Binding{ModuleID: "M1", Method: "x"}, stats.Collisions[0].Owner)
	})
}

func TestRegisterAll_SecondRunIsContentNoop(t *testing.T) {
	registries(t, func(t *testing.T, newRegistry func() snapshotRegistry) {
		m := newManifest(t,
			mod("M1", "a.b", "x", "a.c", "y"),
			mod("M2", "b.a", "z"),
		)
		reg := newRegistry()

		first := RegisterAll(context.Background(), m, reg)
		require.Equal(t, 3, first.Registered)
		before := reg.Snapshot()

		second := RegisterAll(context.Background(), m, reg)
		require.Equal(t, 0, second.Registered)
		require.Equal(t, 3, second.Skipped)
		require.Equal(t, 0, second.Errors)
		require.Equal(t, 3, second.Redeclared())
		require.Equal(t, before, reg.Snapshot())
		require.NotEqual(t, first.RunID, second.RunID)
	})
}

func TestRegisterAll_PrepopulatedRegistryShadows(t *testing.T) {
	registries(t, func(t *testing.T, newRegistry func() snapshotRegistry) {
		reg := newRegistry()
		require.NoError(t, reg.Set("a.b", authority.Binding{ModuleID: "plugin", Method: "run"}))

		m := newManifest(t, mod("M1", "a.b", "x", "a.c", "y"))
		stats := RegisterAll(context.Background(), m, reg)

		require.Equal(t, 1, stats.Registered)
		require.Equal(t, 1, stats.Shadowed())
		require.Equal(t, "plugin", stats.Collisions[0].Owner.ModuleID)
		require.Equal(t, 2, reg.Size())
	})
}

func TestRegisterAll_EmptyManifest(t *testing.T) {
	var m route.Manifest
	reg := authority.NewInMemoryRegistry()

	stats := RegisterAll(context.Background(), m, reg)

	require.Equal(t, 0, stats.ModulesProcessed)
	require.Equal(t, 0, stats.Total())
	require.Equal(t, 0, reg.Size())
}

func TestRegisterAll_ModuleWithoutRoutesIsProcessed(t *testing.T) {
	m := newManifest(t, mod("empty"), mod("M1", "a.b", "x"))
	stats := RegisterAll(context.Background(), m, authority.NewInMemoryRegistry())

	require.Equal(t, 2, stats.ModulesProcessed)
	require.Equal(t, 1, stats.Registered)
}

// === Unit Tests: failure capture ===

func TestRegisterAll_SetErrorIsCountedAndRetained(t *testing.T) {
	boom := errors.New("backend unavailable")
	reg := &failingRegistry{
		plainRegistry: newPlainRegistry(),
		failOn:        map[string]error{"a.c": boom},
	}
	m := newManifest(t,
		mod("M1", "a.b", "x", "a.c", "y", "a.d", "z"),
		mod("M2", "b.a", "w"),
	)

	stats := RegisterAll(context.Background(), m, reg)

	require.Equal(t, 2, stats.ModulesProcessed, "failure must not abort remaining modules")
	require.Equal(t, 3, stats.Registered)
	require.Equal(t, 0, stats.Skipped)
	require.Equal(t, 1, stats.Errors)
	require.Len(t, stats.Failures, 1)

	f := stats.Failures[0]
	require.Equal(t, "a.c", f.Path)
	require.Equal(t, "M1", f.ModuleID)
	require.Equal(t, "y", f.Method)
	require.ErrorIs(t, f, boom)
	require.Contains(t, f.Error(), "M1 a.c: backend unavailable")
	require.False(t, reg.Has("a.c"))
}

func TestRegisterAll_PanicIsRecovered(t *testing.T) {
	sentinel := errors.New("corrupt table")
	reg := &failingRegistry{
		plainRegistry: newPlainRegistry(),
		panicOn:       map[string]any{"a.b": "index out of range", "a.c": sentinel},
	}
	m := newManifest(t, mod("M1", "a.b", "x", "a.c", "y", "a.d", "z"))

	var stats Stats
	require.NotPanics(t, func() {
		stats = RegisterAll(context.Background(), m, reg)
	})

	require.Equal(t, 1, stats.Registered)
	require.Equal(t, 2, stats.Errors)
	require.Contains(t, stats.Failures[0].Err.Error(), "registry panicked: index out of range")
	require.ErrorIs(t, stats.Failures[1].Err, sentinel)
	require.Equal(t, 3, stats.Total())
}

func TestRegisterAll_OwnerUnknownIsShadowed(t *testing.T) {
	m := newManifest(t, mod("M1", "a.b", "x"))

	stats := RegisterAll(context.Background(), m, ownerlessRegistry{})

	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, SkipShadowed, stats.Collisions[0].Reason)
	require.True(t, stats.Collisions[0].Owner.IsZero())
}

func TestBind_MalformedEntry(t *testing.T) {
	reg := authority.NewInMemoryRegistry()

	_, result, err := bind(reg, "", authority.Binding{ModuleID: "M1", Method: "x"})
	require.Equal(t, outcomeFailed, result)
	require.ErrorIs(t, err, ErrMalformedEntry)

	_, result, err = bind(reg, "a.b", authority.Binding{ModuleID: "M1"})
	require.Equal(t, outcomeFailed, result)
	require.ErrorIs(t, err, ErrMalformedEntry)
	require.Equal(t, 0, reg.Size())
}

// === Concurrency ===

// TestRegisterAll_ConcurrentPassesKeepSingleOwner runs independent passes
// against one claim-capable registry and checks each path was registered
// exactly once across all passes.
func TestRegisterAll_ConcurrentPassesKeepSingleOwner(t *testing.T) {
	reg := authority.NewInMemoryRegistry()
	const passes = 16

	manifests := make([]route.Manifest, passes)
	for i := range manifests {
		manifests[i] = newManifest(t,
			mod(fmt.Sprintf("plugin%d", i), "shared.a", "run", "shared.b", "run", fmt.Sprintf("own.p%d", i), "run"),
		)
	}

	results := make([]Stats, passes)
	var wg sync.WaitGroup
	wg.Add(passes)
	for i := range manifests {
		go func(i int) {
			defer wg.Done()
			results[i] = RegisterAll(context.Background(), manifests[i], reg)
		}(i)
	}
	wg.Wait()

	registered := 0
	for _, s := range results {
		require.Equal(t, 3, s.Total())
		require.Equal(t, 0, s.Errors)
		registered += s.Registered
	}
	require.Equal(t, 2+passes, registered)
	require.Equal(t, 2+passes, reg.Size())
}

// === Property Tests ===

func TestRegisterAll_Properties_OutcomeSum(t *testing.T) {
	registries(t, func(t *testing.T, newRegistry func() snapshotRegistry) {
		rapid.Check(t, func(t *rapid.T) {
			m := manifestGen().Draw(t, "manifest")
			reg := newRegistry()

			// Optionally seed the registry with foreign bindings
			seeded := rapid.SliceOfDistinct(rapid.StringMatching(`[a-d]\.[a-d]`), rapid.ID[string]).Draw(t, "seed")
			for _, p := range seeded {
				if err := reg.Set(p, authority.Binding{ModuleID: "seed", Method: "s"}); err != nil {
					t.Fatalf("seed: %v", err)
				}
			}
			sizeBefore := reg.Size()

			stats := RegisterAll(context.Background(), m, reg)

			if stats.Total() != m.RouteCount() {
				t.Fatalf("registered+skipped+errors = %d, want %d", stats.Total(), m.RouteCount())
			}
			if stats.ModulesProcessed != m.Len() {
				t.Fatalf("modules processed = %d, want %d", stats.ModulesProcessed, m.Len())
			}
			if stats.Errors != 0 {
				t.Fatalf("unexpected errors: %v", stats.Failures)
			}
			if len(stats.Collisions) != stats.Skipped {
				t.Fatalf("collisions %d != skipped %d", len(stats.Collisions), stats.Skipped)
			}
			if reg.Size() != sizeBefore+stats.Registered {
				t.Fatalf("size %d, want %d", reg.Size(), sizeBefore+stats.Registered)
			}
		})
	})
}

func TestRegisterAll_Properties_FirstDeclarationOwnsPath(t *testing.T) {
	registries(t, func(t *testing.T, newRegistry func() snapshotRegistry) {
		rapid.Check(t, func(t *rapid.T) {
			m := manifestGen().Draw(t, "manifest")
			reg := newRegistry()

			first := make(map[string]authority.Binding)
			m.Each(func(moduleID string, e route.Entry) {
				if _, ok := first[e.Path]; !ok {
					first[e.Path] = authority.Binding{ModuleID: moduleID, Method: e.Method}
				}
			})

			stats := RegisterAll(context.Background(), m, reg)

			if stats.Registered != len(first) {
				t.Fatalf("registered %d, want %d distinct paths", stats.Registered, len(first))
			}
			for path, want := range first {
				got, ok := reg.Get(path)
				if !ok || got != want {
					t.Fatalf("path %s: got %v, want %v", path, got, want)
				}
			}
			for _, c := range stats.Collisions {
				want := SkipShadowed
				if first[c.Path].ModuleID == c.ModuleID {
					want = SkipRedeclared
				}
				if c.Reason != want {
					t.Fatalf("collision on %s by %s: reason %s, want %s", c.Path, c.ModuleID, c.Reason, want)
				}
			}
		})
	})
}

func TestRegisterAll_Properties_CollisionFree(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := distinctManifestGen().Draw(t, "manifest")
		reg := authority.NewInMemoryRegistry()

		stats := RegisterAll(context.Background(), m, reg)

		n := m.RouteCount()
		if stats.Registered != n || stats.Skipped != 0 || stats.Errors != 0 {
			t.Fatalf("stats %+v, want %d registered and nothing else", stats, n)
		}
		if reg.Size() != n {
			t.Fatalf("registry size %d, want %d", reg.Size(), n)
		}
	})
}

func TestRegisterAll_Properties_Idempotent(t *testing.T) {
	registries(t, func(t *testing.T, newRegistry func() snapshotRegistry) {
		rapid.Check(t, func(t *rapid.T) {
			m := manifestGen().Draw(t, "manifest")
			reg := newRegistry()

			RegisterAll(context.Background(), m, reg)
			before := reg.Snapshot()
			sizeBefore := reg.Size()

			again := RegisterAll(context.Background(), m, reg)

			if again.Registered != 0 || again.Errors != 0 || again.Skipped != m.RouteCount() {
				t.Fatalf("second pass stats %+v, want all %d skipped", again, m.RouteCount())
			}
			if reg.Size() != sizeBefore {
				t.Fatalf("size changed from %d to %d", sizeBefore, reg.Size())
			}
			after := reg.Snapshot()
			if len(after) != len(before) {
				t.Fatalf("content changed: %v -> %v", before, after)
			}
			for k, v := range before {
				if after[k] != v {
					t.Fatalf("binding for %s changed: %v -> %v", k, v, after[k])
				}
			}
		})
	})
}

func TestRegisterAll_Properties_SizeMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg := authority.NewCacheRegistry()
		passes := rapid.IntRange(1, 5).Draw(t, "passes")

		last := 0
		for i := 0; i < passes; i++ {
			m := manifestGen().Draw(t, "manifest")
			RegisterAll(context.Background(), m, reg)
			if reg.Size() < last {
				t.Fatalf("registry shrank from %d to %d", last, reg.Size())
			}
			last = reg.Size()
		}
	})
}
