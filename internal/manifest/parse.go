// Package manifest loads route manifests from YAML, JSON, HCL and TOML files.
//
// Every loader validates what it reads through route.NewManifest, so a file
// with a missing path, an empty moduleId or a duplicate moduleId is rejected
// as a whole before it can reach registration.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/routegate/internal/domain/route"
)

// ErrUnsupportedFormat is returned for files whose extension has no decoder.
var ErrUnsupportedFormat = errors.New("unsupported manifest format")

// ErrMultipleDocuments is returned for YAML files holding more than one
// document. Later documents would otherwise be dropped.
var ErrMultipleDocuments = errors.New("multiple YAML documents not supported")

// Format identifies a manifest encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatHCL  Format = "hcl"
	FormatTOML Format = "toml"
)

var extensions = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
	".hcl":  FormatHCL,
	".toml": FormatTOML,
}

// FormatOf returns the format implied by name's extension.
func FormatOf(name string) (Format, bool) {
	f, ok := extensions[strings.ToLower(filepath.Ext(name))]
	return f, ok
}

// IsManifestFile reports whether name has a supported manifest extension.
func IsManifestFile(name string) bool {
	_, ok := FormatOf(name)
	return ok
}

// fileManifest is the YAML, JSON and TOML document shape.
type fileManifest struct {
	Modules []fileModule `yaml:"modules" toml:"modules"`
}

type fileModule struct {
	ModuleID string      `yaml:"moduleId" toml:"moduleId"`
	Routes   []fileRoute `yaml:"routes" toml:"routes"`
}

type fileRoute struct {
	Path   string `yaml:"path" toml:"path"`
	Method string `yaml:"method" toml:"method"`
}

// hclManifest is the HCL document shape:
//
//	module "engine.svd" {
//	  route "engine.svd.calculate" {
//	    method = "calculate"
//	  }
//	}
type hclManifest struct {
	Modules []hclModule `hcl:"module,block"`
}

type hclModule struct {
	ModuleID string     `hcl:"id,label"`
	Routes   []hclRoute `hcl:"route,block"`
}

type hclRoute struct {
	Path   string `hcl:"path,label"`
	Method string `hcl:"method,optional"`
}

// Parse decodes data using the format implied by name and validates the
// result. Empty documents yield an empty manifest.
func Parse(name string, data []byte) (route.Manifest, error) {
	format, ok := FormatOf(name)
	if !ok {
		return route.Manifest{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	var (
		sets []route.ModuleRouteSet
		err  error
	)
	switch format {
	case FormatYAML, FormatJSON:
		sets, err = decodeYAML(data)
	case FormatHCL:
		sets, err = decodeHCL(name, data)
	case FormatTOML:
		sets, err = decodeTOML(data)
	}
	if err != nil {
		return route.Manifest{}, fmt.Errorf("parse %s: %w", name, err)
	}

	m, err := route.NewManifest(sets...)
	if err != nil {
		return route.Manifest{}, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

// decodeYAML also handles JSON, which the YAML parser accepts as a subset.
func decodeYAML(data []byte) ([]route.ModuleRouteSet, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc fileManifest
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, err
		}
		return nil, ErrMultipleDocuments
	}
	return doc.sets(), nil
}

func decodeHCL(name string, data []byte) ([]route.ModuleRouteSet, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, name)
	if diags.HasErrors() {
		return nil, diags
	}

	var doc hclManifest
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, diags
	}

	sets := make([]route.ModuleRouteSet, 0, len(doc.Modules))
	for _, m := range doc.Modules {
		set := route.ModuleRouteSet{ModuleID: m.ModuleID}
		for _, r := range m.Routes {
			set.Routes = append(set.Routes, route.Entry{Path: r.Path, Method: r.Method})
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func decodeTOML(data []byte) ([]route.ModuleRouteSet, error) {
	var doc fileManifest
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return doc.sets(), nil
}

func (f fileManifest) sets() []route.ModuleRouteSet {
	sets := make([]route.ModuleRouteSet, 0, len(f.Modules))
	for _, m := range f.Modules {
		set := route.ModuleRouteSet{ModuleID: m.ModuleID}
		for _, r := range m.Routes {
			set.Routes = append(set.Routes, route.Entry{Path: r.Path, Method: r.Method})
		}
		sets = append(sets, set)
	}
	return sets
}
