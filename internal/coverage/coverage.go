// Package coverage reports how much of a route manifest is present in an
// authority registry.
//
// Verify is a presence check: a declared path counts as covered whenever the
// registry holds any binding for it, even one owned by a different module.
// Audit lists those ownership mismatches separately.
package coverage

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/routegate/internal/authority"
	"github.com/zjrosen/routegate/internal/domain/route"
	"github.com/zjrosen/routegate/internal/log"
	"github.com/zjrosen/routegate/internal/tracing"
)

// Report summarizes manifest coverage against a registry.
type Report struct {
	TotalModules     int
	TotalRoutes      int
	RegisteredRoutes int
	CoveragePercent  string
	RegistrySize     int

	// Unbound lists declared paths with no binding, deduplicated, in
	// manifest order.
	Unbound []string
}

// Complete reports whether every declared route is present.
func (r Report) Complete() bool {
	return r.RegisteredRoutes == r.TotalRoutes
}

// Verify counts the manifest's routes and how many of their paths are bound
// in reg. Duplicate declarations are counted once per entry.
func Verify(ctx context.Context, m route.Manifest, reg authority.Registry) Report {
	_, span := tracing.Tracer().Start(ctx, tracing.SpanVerify)
	defer span.End()

	report := Report{TotalModules: m.Len()}
	seen := make(map[string]struct{})

	m.Each(func(_ string, e route.Entry) {
		report.TotalRoutes++
		if reg.Has(e.Path) {
			report.RegisteredRoutes++
			return
		}
		if _, ok := seen[e.Path]; !ok {
			seen[e.Path] = struct{}{}
			report.Unbound = append(report.Unbound, e.Path)
		}
	})

	report.CoveragePercent = Percent(report.RegisteredRoutes, report.TotalRoutes)
	report.RegistrySize = reg.Size()

	span.SetAttributes(
		attribute.Int(tracing.AttrManifestModules, report.TotalModules),
		attribute.Int(tracing.AttrManifestRoutes, report.TotalRoutes),
		attribute.Int(tracing.AttrCoverageRegistered, report.RegisteredRoutes),
		attribute.String(tracing.AttrCoveragePercent, report.CoveragePercent),
		attribute.Int(tracing.AttrRegistrySize, report.RegistrySize),
	)

	if !report.Complete() {
		span.AddEvent(tracing.EventIncomplete, trace.WithAttributes(
			attribute.Int(tracing.AttrCoverageUnbound, len(report.Unbound)),
		))
		log.Warn(log.CatCoverage, "Manifest not fully registered",
			"registered", report.RegisteredRoutes, "total", report.TotalRoutes,
			"unbound", len(report.Unbound))
	}
	log.Info(log.CatCoverage, "Coverage verified",
		"modules", report.TotalModules,
		"routes", report.TotalRoutes,
		"registered", report.RegisteredRoutes,
		"coverage", report.CoveragePercent,
		"registry_size", report.RegistrySize)

	return report
}

// Percent formats registered/total as a percentage with one decimal place.
// A zero total yields "0%".
func Percent(registered, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(registered)/float64(total)*100)
}
