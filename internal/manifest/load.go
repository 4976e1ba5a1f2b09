package manifest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/routegate/internal/domain/route"
	"github.com/zjrosen/routegate/internal/log"
	"github.com/zjrosen/routegate/internal/tracing"
)

const (
	DefaultCacheExpiration = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute
)

// Loader reads manifest files from disk. A caching Loader keeps parsed files
// keyed by path and reuses them while the file's size and modification time
// are unchanged, which keeps watch-mode reloads cheap.
type Loader struct {
	cache *gocache.Cache
}

// NewLoader returns a Loader that parses every file on every call.
func NewLoader() *Loader {
	return &Loader{}
}

// NewCachingLoader returns a Loader that caches parsed files for expiration.
func NewCachingLoader(expiration, cleanupInterval time.Duration) *Loader {
	return &Loader{cache: gocache.New(expiration, cleanupInterval)}
}

var defaultLoader = NewLoader()

// LoadFile parses a single manifest file.
func LoadFile(path string) (route.Manifest, error) {
	return defaultLoader.LoadFile(path)
}

// LoadDir parses every manifest file under dir.
func LoadDir(dir string) (route.Manifest, error) {
	return defaultLoader.LoadDir(dir)
}

// Load parses files and directories in argument order and merges them.
func Load(ctx context.Context, paths ...string) (route.Manifest, error) {
	return defaultLoader.Load(ctx, paths...)
}

type cachedFile struct {
	size     int64
	modTime  time.Time
	manifest route.Manifest
}

// LoadFile parses a single manifest file, using the cache when the file is
// unchanged since it was last parsed.
func (l *Loader) LoadFile(path string) (route.Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return route.Manifest{}, fmt.Errorf("stat %s: %w", path, err)
	}

	if l.cache != nil {
		if v, found := l.cache.Get(path); found {
			if c, ok := v.(cachedFile); ok && c.size == info.Size() && c.modTime.Equal(info.ModTime()) {
				log.Debug(log.CatManifest, "manifest cache hit", "path", path)
				return c.manifest, nil
			}
		}
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from configuration or CLI arguments
	if err != nil {
		return route.Manifest{}, fmt.Errorf("read %s: %w", path, err)
	}

	m, err := Parse(path, data)
	if err != nil {
		if l.cache != nil {
			l.cache.Delete(path)
		}
		return route.Manifest{}, err
	}

	if l.cache != nil {
		l.cache.SetDefault(path, cachedFile{size: info.Size(), modTime: info.ModTime(), manifest: m})
	}
	log.Debug(log.CatManifest, "manifest parsed", "path", path, "modules", m.Len(), "routes", m.RouteCount())
	return m, nil
}

// LoadDir parses every manifest file under dir, recursively, in lexical
// order. Hidden directories are skipped.
func (l *Loader) LoadDir(dir string) (route.Manifest, error) {
	var parts []route.Manifest

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsManifestFile(d.Name()) {
			return nil
		}

		m, err := l.LoadFile(path)
		if err != nil {
			return err
		}
		parts = append(parts, m)
		return nil
	})
	if err != nil {
		return route.Manifest{}, fmt.Errorf("scan %s: %w", dir, err)
	}

	return merge(dir, parts)
}

// Load parses each path, which may be a file or a directory, and merges the
// results in argument order. A moduleId declared in two sources is rejected.
func (l *Loader) Load(ctx context.Context, paths ...string) (route.Manifest, error) {
	_, span := tracing.Tracer().Start(ctx, tracing.SpanLoad, trace.WithAttributes(
		attribute.String(tracing.AttrManifestSource, strings.Join(paths, ",")),
	))
	defer span.End()

	parts := make([]route.Manifest, 0, len(paths))
	for _, p := range paths {
		m, err := l.loadPath(p)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "manifest load failed")
			log.ErrorErr(log.CatManifest, "Failed to load manifest", err, "path", p)
			return route.Manifest{}, err
		}
		parts = append(parts, m)
	}

	m, err := merge(strings.Join(paths, ", "), parts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "manifest merge failed")
		log.ErrorErr(log.CatManifest, "Failed to merge manifests", err, "paths", paths)
		return route.Manifest{}, err
	}

	span.SetAttributes(
		attribute.Int(tracing.AttrManifestModules, m.Len()),
		attribute.Int(tracing.AttrManifestRoutes, m.RouteCount()),
	)
	log.Info(log.CatManifest, "Manifests loaded", "sources", len(paths), "modules", m.Len(), "routes", m.RouteCount())
	return m, nil
}

func (l *Loader) loadPath(p string) (route.Manifest, error) {
	info, err := os.Stat(p)
	if err != nil {
		return route.Manifest{}, fmt.Errorf("stat %s: %w", p, err)
	}
	if info.IsDir() {
		return l.LoadDir(p)
	}
	return l.LoadFile(p)
}

// LoadFS parses every manifest file under root in fsys, in lexical order.
func LoadFS(fsys fs.FS, root string) (route.Manifest, error) {
	var parts []route.Manifest

	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsManifestFile(d.Name()) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		m, err := Parse(path, data)
		if err != nil {
			return err
		}
		parts = append(parts, m)
		return nil
	})
	if err != nil {
		return route.Manifest{}, fmt.Errorf("scan %s: %w", root, err)
	}

	return merge(root, parts)
}

func merge(source string, parts []route.Manifest) (route.Manifest, error) {
	m, err := route.Merge(parts...)
	if err != nil {
		return route.Manifest{}, fmt.Errorf("merge %s: %w", source, err)
	}
	return m, nil
}
