package route

// Manifest is the validated, ordered catalogue of module route sets.
// The zero value is an empty manifest.
type Manifest struct {
	modules []ModuleRouteSet
}

// NewManifest validates sets and returns an immutable Manifest. The returned
// error is a *ValidationError listing every problem found.
func NewManifest(sets ...ModuleRouteSet) (Manifest, error) {
	if err := validate(sets); err != nil {
		return Manifest{}, err
	}
	modules := make([]ModuleRouteSet, len(sets))
	for i, s := range sets {
		modules[i] = s.clone()
	}
	return Manifest{modules: modules}, nil
}

// Merge concatenates manifests in argument order and validates the result,
// so a moduleId declared in two sources is rejected.
func Merge(manifests ...Manifest) (Manifest, error) {
	var sets []ModuleRouteSet
	for _, m := range manifests {
		sets = append(sets, m.modules...)
	}
	return NewManifest(sets...)
}

// Modules returns a copy of the module route sets in manifest order.
func (m Manifest) Modules() []ModuleRouteSet {
	out := make([]ModuleRouteSet, len(m.modules))
	for i, s := range m.modules {
		out[i] = s.clone()
	}
	return out
}

// Each calls fn for every route in manifest order without copying.
func (m Manifest) Each(fn func(moduleID string, e Entry)) {
	for _, s := range m.modules {
		for _, r := range s.Routes {
			fn(s.ModuleID, r)
		}
	}
}

// Len returns the number of module route sets.
func (m Manifest) Len() int {
	return len(m.modules)
}

// RouteCount returns the total number of route entries, duplicates included.
func (m Manifest) RouteCount() int {
	n := 0
	for _, s := range m.modules {
		n += len(s.Routes)
	}
	return n
}
