// Package flags provides feature flags read from the flags section of the
// config file. Flags are read-only after initialization.
package flags

import (
	"maps"
	"slices"

	"github.com/zjrosen/routegate/internal/log"
)

// Flag name constants for type-safe flag access.
const (
	// FlagManifestCache lets watch reuse parsed manifests whose size and
	// modification time have not changed since the last reload.
	FlagManifestCache = "manifest-cache"

	// FlagOwnershipAudit adds ownership mismatches (declared routes bound to
	// another module) to register output.
	FlagOwnershipAudit = "ownership-audit"
)

// defaults holds every known flag and its value when unset.
var defaults = map[string]bool{
	FlagManifestCache:  true,
	FlagOwnershipAudit: true,
}

// Known reports whether name is a recognized flag.
func Known(name string) bool {
	_, ok := defaults[name]
	return ok
}

// Names returns the recognized flag names, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(defaults))
}

// Registry holds feature flag state loaded from configuration.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from the defaults with overrides applied on top.
// A nil map keeps every default.
func New(overrides map[string]bool) *Registry {
	merged := maps.Clone(defaults)
	for name, value := range overrides {
		if !Known(name) {
			log.Warn(log.CatConfig, "Ignoring unknown flag", "flag", name)
			continue
		}
		merged[name] = value
	}
	r := &Registry{flags: merged}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(merged), "flags", r.All())
	return r
}

// Enabled returns true if the named flag is enabled.
// Returns false for unknown flags and on a nil registry.
func (r *Registry) Enabled(name string) bool {
	if r == nil || r.flags == nil {
		return false
	}
	value, exists := r.flags[name]
	if !exists {
		log.Debug(log.CatConfig, "Unknown flag accessed", "flag", name, "result", false)
		return false
	}
	return value
}

// All returns a copy of all flags.
// Returns an empty map if the registry is nil.
func (r *Registry) All() map[string]bool {
	if r == nil || r.flags == nil {
		return make(map[string]bool)
	}
	result := make(map[string]bool, len(r.flags))
	maps.Copy(result, r.flags)
	return result
}
