// Package gateway owns a populated authority registry and resolves capability
// paths against it.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zjrosen/routegate/internal/authority"
	"github.com/zjrosen/routegate/internal/coverage"
	"github.com/zjrosen/routegate/internal/domain/route"
	"github.com/zjrosen/routegate/internal/log"
	"github.com/zjrosen/routegate/internal/pubsub"
	"github.com/zjrosen/routegate/internal/registrar"
)

// ErrRouteNotFound is returned by Resolve for a path with no binding.
var ErrRouteNotFound = errors.New("route not found")

// Outcome is the payload published after every registration attempt.
// Err is set only for RejectedEvent.
type Outcome struct {
	Source string
	Stats  registrar.Stats
	Report coverage.Report
	Err    error
}

// Gateway serializes registration passes into one registry and answers
// lookups from it.
type Gateway struct {
	mu     sync.Mutex
	reg    authority.Registry
	events *pubsub.Broker[Outcome]
}

// New returns a Gateway over reg. The registry may already hold bindings.
func New(reg authority.Registry) *Gateway {
	return &Gateway{
		reg:    reg,
		events: pubsub.NewBroker[Outcome](),
	}
}

// Register merges m into the registry and verifies coverage afterwards.
// Passes run one at a time.
func (g *Gateway) Register(ctx context.Context, m route.Manifest) (registrar.Stats, coverage.Report) {
	return g.RegisterFrom(ctx, "", m)
}

// RegisterFrom is Register with a source label carried on the published
// event.
func (g *Gateway) RegisterFrom(ctx context.Context, source string, m route.Manifest) (registrar.Stats, coverage.Report) {
	g.mu.Lock()
	stats := registrar.RegisterAll(ctx, m, g.reg)
	report := coverage.Verify(ctx, m, g.reg)
	g.mu.Unlock()

	eventType := pubsub.RegisteredEvent
	if stats.Errors > 0 || !report.Complete() {
		eventType = pubsub.IncompleteEvent
	}
	g.events.Publish(eventType, Outcome{Source: source, Stats: stats, Report: report})

	return stats, report
}

// Reject publishes a RejectedEvent for a manifest source that could not be
// loaded. The registry is left untouched.
func (g *Gateway) Reject(source string, err error) {
	log.ErrorErr(log.CatManifest, "Manifest rejected", err, "source", source)
	g.events.Publish(pubsub.RejectedEvent, Outcome{Source: source, Err: err})
}

// Resolve returns the binding that serves path.
func (g *Gateway) Resolve(path string) (authority.Binding, error) {
	b, ok := g.reg.Get(path)
	if !ok {
		return authority.Binding{}, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}
	return b, nil
}

// Registry returns the underlying registry.
func (g *Gateway) Registry() authority.Registry {
	return g.reg
}

// Subscribe returns a channel of registration outcomes, closed when ctx is
// done or the Gateway is closed.
func (g *Gateway) Subscribe(ctx context.Context) <-chan pubsub.Event[Outcome] {
	return g.events.Subscribe(ctx)
}

// Close releases subscribers.
func (g *Gateway) Close() {
	g.events.Close()
}
