package registrar

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/routegate/internal/authority"
	"github.com/zjrosen/routegate/internal/domain/route"
	"github.com/zjrosen/routegate/internal/log"
	"github.com/zjrosen/routegate/internal/tracing"
)

type outcome int

const (
	outcomeRegistered outcome = iota
	outcomeSkipped
	outcomeFailed
)

// RegisterAll binds every route in m into reg, in manifest order, without
// overwriting existing bindings. It never panics and never returns an error;
// per-entry problems are reported through the returned Stats.
//
// Concurrent calls against the same registry keep first-writer-wins only if
// reg implements authority.Claimer. Otherwise callers must serialize passes.
func RegisterAll(ctx context.Context, m route.Manifest, reg authority.Registry) Stats {
	stats := Stats{RunID: uuid.NewString()}

	_, span := tracing.Tracer().Start(ctx, tracing.SpanRegisterAll, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, stats.RunID),
		attribute.Int(tracing.AttrManifestModules, m.Len()),
		attribute.Int(tracing.AttrManifestRoutes, m.RouteCount()),
	))
	defer span.End()

	log.Debug(log.CatRegistrar, "Registration pass starting",
		"run_id", stats.RunID, "modules", m.Len(), "routes", m.RouteCount(), "registry_size", reg.Size())

	for _, set := range m.Modules() {
		for _, r := range set.Routes {
			binding := authority.Binding{ModuleID: set.ModuleID, Method: r.Method}

			owner, result, err := bind(reg, r.Path, binding)
			switch result {
			case outcomeRegistered:
				stats.Registered++
			case outcomeSkipped:
				c := Collision{
					Path:     r.Path,
					ModuleID: set.ModuleID,
					Method:   r.Method,
					Owner:    owner,
					Reason:   reasonFor(owner, set.ModuleID),
				}
				stats.Skipped++
				stats.Collisions = append(stats.Collisions, c)
				recordCollision(span, c)
			case outcomeFailed:
				f := Failure{Path: r.Path, ModuleID: set.ModuleID, Method: r.Method, Err: err}
				stats.Errors++
				stats.Failures = append(stats.Failures, f)
				recordFailure(span, f)
			}
		}
		stats.ModulesProcessed++
	}

	span.SetAttributes(
		attribute.Int(tracing.AttrRegistered, stats.Registered),
		attribute.Int(tracing.AttrSkipped, stats.Skipped),
		attribute.Int(tracing.AttrErrors, stats.Errors),
	)
	if stats.Errors > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d route(s) failed to register", stats.Errors))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	log.Info(log.CatRegistrar, "Registration pass complete",
		"run_id", stats.RunID,
		"modules", stats.ModulesProcessed,
		"registered", stats.Registered,
		"skipped", stats.Skipped,
		"redeclared", stats.Redeclared(),
		"shadowed", stats.Shadowed(),
		"errors", stats.Errors,
		"registry_size", reg.Size())

	return stats
}

// bind resolves a single entry to one outcome. Panics raised by the registry
// are recovered and reported as failures.
func bind(reg authority.Registry, path string, b authority.Binding) (owner authority.Binding, result outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			owner = authority.Binding{}
			result = outcomeFailed
			if perr, ok := p.(error); ok {
				err = fmt.Errorf("registry panicked: %w", perr)
			} else {
				err = fmt.Errorf("registry panicked: %v", p)
			}
		}
	}()

	if path == "" || b.Method == "" {
		return authority.Binding{}, outcomeFailed, ErrMalformedEntry
	}

	if claimer, ok := reg.(authority.Claimer); ok {
		current, stored, claimErr := claimer.Claim(path, b)
		switch {
		case claimErr != nil:
			return authority.Binding{}, outcomeFailed, claimErr
		case stored:
			return b, outcomeRegistered, nil
		default:
			return current, outcomeSkipped, nil
		}
	}

	if reg.Has(path) {
		current, _ := reg.Get(path)
		return current, outcomeSkipped, nil
	}
	if setErr := reg.Set(path, b); setErr != nil {
		return authority.Binding{}, outcomeFailed, setErr
	}
	return b, outcomeRegistered, nil
}

func reasonFor(owner authority.Binding, moduleID string) SkipReason {
	if owner.ModuleID == moduleID {
		return SkipRedeclared
	}
	return SkipShadowed
}

func recordCollision(span trace.Span, c Collision) {
	span.AddEvent(tracing.EventCollision, trace.WithAttributes(
		attribute.String(tracing.AttrRoutePath, c.Path),
		attribute.String(tracing.AttrRouteModule, c.ModuleID),
		attribute.String(tracing.AttrRouteOwner, c.Owner.String()),
		attribute.String(tracing.AttrCollisionKind, string(c.Reason)),
	))

	if c.Reason == SkipShadowed {
		log.Warn(log.CatRegistrar, "Route shadowed by another module",
			"path", c.Path, "module", c.ModuleID, "method", c.Method, "owner", c.Owner.String())
		return
	}
	log.Debug(log.CatRegistrar, "Route already bound to declaring module",
		"path", c.Path, "module", c.ModuleID, "method", c.Method, "owner", c.Owner.String())
}

func recordFailure(span trace.Span, f Failure) {
	span.AddEvent(tracing.EventFailure, trace.WithAttributes(
		attribute.String(tracing.AttrRoutePath, f.Path),
		attribute.String(tracing.AttrRouteModule, f.ModuleID),
		attribute.String(tracing.AttrRouteMethod, f.Method),
	))
	span.RecordError(f.Err)

	log.ErrorErr(log.CatRegistrar, "Route registration failed", f.Err,
		"path", f.Path, "module", f.ModuleID, "method", f.Method)
}
