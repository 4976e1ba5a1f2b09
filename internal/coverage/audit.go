package coverage

import (
	"github.com/zjrosen/routegate/internal/authority"
	"github.com/zjrosen/routegate/internal/domain/route"
)

// Mismatch is a declared route whose path is bound to something other than
// the declaring module and method.
type Mismatch struct {
	Path     string
	Declared authority.Binding
	Actual   authority.Binding
}

// SameModule reports whether the declaring module owns the path under a
// different method.
func (m Mismatch) SameModule() bool {
	return m.Declared.ModuleID == m.Actual.ModuleID
}

// Audit compares every declared route with the binding reg resolves it to and
// returns the entries that differ, in manifest order. Unbound paths are not
// mismatches; Verify reports them.
func Audit(m route.Manifest, reg authority.Registry) []Mismatch {
	var out []Mismatch
	m.Each(func(moduleID string, e route.Entry) {
		actual, ok := reg.Get(e.Path)
		if !ok {
			return
		}
		declared := authority.Binding{ModuleID: moduleID, Method: e.Method}
		if actual != declared {
			out = append(out, Mismatch{Path: e.Path, Declared: declared, Actual: actual})
		}
	})
	return out
}
