package manifest

import (
	"embed"
	"io/fs"

	"github.com/zjrosen/routegate/internal/domain/route"
)

// catalog embeds the built-in module manifests shipped with the binary.
//
//go:embed catalog/*.yaml
var catalog embed.FS

// CatalogFS returns the embedded filesystem holding the built-in manifests.
func CatalogFS() fs.FS {
	return catalog
}

// Builtin loads the built-in catalogue.
func Builtin() (route.Manifest, error) {
	return LoadFS(catalog, "catalog")
}
