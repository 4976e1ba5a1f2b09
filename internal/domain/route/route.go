package route

// Entry is a single capability address and the method that serves it.
type Entry struct {
	Path   string
	Method string
}

// ModuleRouteSet is the ordered list of routes one module declares.
type ModuleRouteSet struct {
	ModuleID string
	Routes   []Entry
}

// clone returns a deep copy so callers cannot mutate a manifest through it.
func (s ModuleRouteSet) clone() ModuleRouteSet {
	routes := make([]Entry, len(s.Routes))
	copy(routes, s.Routes)
	return ModuleRouteSet{ModuleID: s.ModuleID, Routes: routes}
}
