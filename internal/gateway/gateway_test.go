package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/routegate/internal/authority"
	"github.com/zjrosen/routegate/internal/domain/route"
	"github.com/zjrosen/routegate/internal/pubsub"
)

func manifest(t *testing.T, sets ...route.ModuleRouteSet) route.Manifest {
	t.Helper()
	m, err := route.NewManifest(sets...)
	require.NoError(t, err)
	return m
}

func TestGateway_RegisterAndResolve(t *testing.T) {
	g := New(authority.NewInMemoryRegistry())
	defer g.Close()

	m := manifest(t,
		route.ModuleRouteSet{ModuleID: "M1", Routes: []route.Entry{{Path: "a.b", Method: "x"}}},
		route.ModuleRouteSet{ModuleID: "M2", Routes: []route.Entry{{Path: "a.b", Method: "y"}}},
	)

	stats, report := g.Register(context.Background(), m)
	require.Equal(t, 1, stats.Registered)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, "100.0%", report.CoveragePercent)

	b, err := g.Resolve("a.b")
	require.NoError(t, err)
	require.Equal(t, authority.Binding{ModuleID: "M1", Method: "x"}, b)

	_, err = g.Resolve("a.c")
	require.ErrorIs(t, err, ErrRouteNotFound)
	require.Contains(t, err.Error(), "a.c")
}

func TestGateway_PublishesOutcomes(t *testing.T) {
	reg := authority.NewInMemoryRegistry()
	g := New(reg)
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := g.Subscribe(ctx)

	m := manifest(t, route.ModuleRouteSet{ModuleID: "M1", Routes: []route.Entry{{Path: "a.b", Method: "x"}}})
	g.RegisterFrom(ctx, "routes.yaml", m)
	g.Reject("broken.yaml", errors.New("bad indent"))

	first := <-events
	require.Equal(t, pubsub.RegisteredEvent, first.Type)
	require.Equal(t, "routes.yaml", first.Payload.Source)
	require.Equal(t, 1, first.Payload.Stats.Registered)
	require.NoError(t, first.Payload.Err)

	second := <-events
	require.Equal(t, pubsub.RejectedEvent, second.Type)
	require.EqualError(t, second.Payload.Err, "bad indent")
	require.Equal(t, 1, reg.Size())
}

// brokenRegistry hides Claim so every bind goes through the failing Set.
type brokenRegistry struct{ authority.Registry }

func (brokenRegistry) Set(string, authority.Binding) error { return errors.New("read only") }

func TestGateway_IncompleteOnFailure(t *testing.T) {
	g := New(brokenRegistry{authority.NewInMemoryRegistry()})
	defer g.Close()

	events := g.Subscribe(context.Background())
	m := manifest(t, route.ModuleRouteSet{ModuleID: "M1", Routes: []route.Entry{{Path: "a.b", Method: "x"}}})

	stats, report := g.Register(context.Background(), m)
	require.Equal(t, 1, stats.Errors)
	require.Equal(t, "0.0%", report.CoveragePercent)

	select {
	case ev := <-events:
		require.Equal(t, pubsub.IncompleteEvent, ev.Type)
	case <-time.After(time.Second):
		require.Fail(t, "no event published")
	}
}

func TestGateway_ConcurrentRegistrationKeepsFirstWriter(t *testing.T) {
	// Without Claim the registrar falls back to has-then-set, so only the
	// gateway mutex keeps passes from interleaving.
	type hasSetOnly struct{ authority.Registry }
	g := New(hasSetOnly{authority.NewInMemoryRegistry()})
	defer g.Close()

	const passes = 12
	manifests := make([]route.Manifest, passes)
	for i := range manifests {
		manifests[i] = manifest(t, route.ModuleRouteSet{
			ModuleID: fmt.Sprintf("plugin%d", i),
			Routes:   []route.Entry{{Path: "shared.run", Method: "run"}},
		})
	}

	var wg sync.WaitGroup
	registered := make([]int, passes)
	for i := 0; i < passes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stats, _ := g.Register(context.Background(), manifests[i])
			registered[i] = stats.Registered
		}(i)
	}
	wg.Wait()

	total := 0
	for _, n := range registered {
		total += n
	}
	require.Equal(t, 1, total)
	require.Equal(t, 1, g.Registry().Size())
}
