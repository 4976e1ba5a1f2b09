// Package registrar merges a route manifest into an authority registry.
//
// RegisterAll walks the manifest in order and binds every path under a
// first-writer-wins policy: a path that is already bound is skipped, never
// overwritten. Every entry ends in exactly one outcome (registered, skipped
// or failed), so Registered + Skipped + Errors always equals the manifest's
// route count.
//
// Skips are not errors. Each one is recorded as a Collision whose Reason
// separates a module re-declaring its own path (SkipRedeclared) from a path
// owned by a different module (SkipShadowed), leaving the decision of whether
// either matters to the caller.
//
// Failures raised by the registry for a single entry, including panics, are
// captured as Failure values with the original error and never abort the
// pass. RegisterAll itself never returns an error.
package registrar
