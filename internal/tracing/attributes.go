package tracing

// Span names.
const (
	SpanRegisterAll = "registrar.register_all"
	SpanVerify      = "coverage.verify"
	SpanLoad        = "manifest.load"
)

// Span event names.
const (
	EventCollision  = "route.collision"
	EventFailure    = "route.failure"
	EventIncomplete = "coverage.incomplete"
)

// Span attribute keys.
const (
	// Run attributes
	AttrRunID = "registration.run_id"

	// Manifest attributes
	AttrManifestModules = "manifest.modules"
	AttrManifestRoutes  = "manifest.routes"
	AttrManifestSource  = "manifest.source"

	// Route attributes
	AttrRoutePath     = "route.path"
	AttrRouteModule   = "route.module_id"
	AttrRouteMethod   = "route.method"
	AttrRouteOwner    = "route.owner"
	AttrCollisionKind = "route.collision.reason"

	// Stats attributes
	AttrRegistered = "registration.registered"
	AttrSkipped    = "registration.skipped"
	AttrErrors     = "registration.errors"

	// Coverage attributes
	AttrCoverageRegistered = "coverage.registered_routes"
	AttrCoveragePercent    = "coverage.percent"
	AttrCoverageUnbound    = "coverage.unbound_paths"
	AttrRegistrySize       = "registry.size"
)
