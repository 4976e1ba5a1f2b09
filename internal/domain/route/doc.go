// Package route defines the declarative capability manifest: modules and the
// dotted paths they claim to serve.
//
// A Manifest is an ordered list of ModuleRouteSet values. Order is significant:
// when two entries declare the same path, the earlier one wins the binding at
// registration time. Manifests are validated once, at construction, and are
// immutable afterwards, so malformed input is rejected before any registration
// work begins.
//
// This package is pure domain logic and performs no I/O. Loading manifests
// from YAML, JSON, HCL or TOML lives in internal/manifest.
package route
