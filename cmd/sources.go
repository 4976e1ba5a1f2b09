package cmd

import (
	"context"
	"fmt"

	"github.com/zjrosen/routegate/internal/authority"
	"github.com/zjrosen/routegate/internal/domain/route"
	"github.com/zjrosen/routegate/internal/log"
	"github.com/zjrosen/routegate/internal/manifest"
)

// manifestPaths returns explicit args, falling back to configured manifests.
func manifestPaths(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return cfg.Manifests
}

// loadManifest loads paths with loader and prepends the built-in catalogue
// when it is enabled or when there is nothing else to load. Prepended
// built-in modules win every path they share with the loaded manifests.
func loadManifest(ctx context.Context, loader *manifest.Loader, paths []string) (route.Manifest, error) {
	var parts []route.Manifest

	if cfg.IncludeBuiltin || len(paths) == 0 {
		builtin, err := manifest.Builtin()
		if err != nil {
			return route.Manifest{}, fmt.Errorf("loading built-in catalogue: %w", err)
		}
		parts = append(parts, builtin)
	}

	if len(paths) > 0 {
		m, err := loader.Load(ctx, paths...)
		if err != nil {
			return route.Manifest{}, err
		}
		parts = append(parts, m)
	}

	m, err := route.Merge(parts...)
	if err != nil {
		return route.Manifest{}, fmt.Errorf("merging with built-in catalogue: %w", err)
	}
	log.Debug(log.CatCLI, "manifest resolved", "paths", paths, "builtin", cfg.IncludeBuiltin, "modules", m.Len())
	return m, nil
}

func newRegistry() (authority.Registry, error) {
	reg, err := authority.New(cfg.Registry.Backend)
	if err != nil {
		return nil, fmt.Errorf("creating registry: %w", err)
	}
	return reg, nil
}
