package route

// DuplicateKind classifies a path declared more than once.
type DuplicateKind string

const (
	// DuplicateSelf means a single module repeats one of its own paths.
	DuplicateSelf DuplicateKind = "self"
	// DuplicateCross means two or more modules declare the same path.
	DuplicateCross DuplicateKind = "cross"
)

// Declaration locates one declaration of a path.
type Declaration struct {
	ModuleID string
	Method   string
}

// Duplicate is a path with more than one declaration, in manifest order.
// The first declaration is the one registration will bind.
type Duplicate struct {
	Path         string
	Kind         DuplicateKind
	Declarations []Declaration
}

// Duplicates lists every path declared more than once, ordered by the first
// declaration of each path. Duplicates are legal; this is lint output.
func (m Manifest) Duplicates() []Duplicate {
	var order []string
	decls := make(map[string][]Declaration)

	m.Each(func(moduleID string, e Entry) {
		if _, ok := decls[e.Path]; !ok {
			order = append(order, e.Path)
		}
		decls[e.Path] = append(decls[e.Path], Declaration{ModuleID: moduleID, Method: e.Method})
	})

	var out []Duplicate
	for _, path := range order {
		d := decls[path]
		if len(d) < 2 {
			continue
		}
		kind := DuplicateSelf
		for _, decl := range d[1:] {
			if decl.ModuleID != d[0].ModuleID {
				kind = DuplicateCross
				break
			}
		}
		out = append(out, Duplicate{Path: path, Kind: kind, Declarations: d})
	}
	return out
}
