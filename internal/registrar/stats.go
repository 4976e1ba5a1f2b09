package registrar

import (
	"errors"

	"github.com/zjrosen/routegate/internal/authority"
)

// ErrMalformedEntry indicates an entry with an empty path or method reached
// registration. Validated manifests never contain one.
var ErrMalformedEntry = errors.New("malformed route entry")

// SkipReason explains why a route was not bound.
type SkipReason string

const (
	// SkipRedeclared means the path is already owned by the declaring module.
	SkipRedeclared SkipReason = "redeclared"
	// SkipShadowed means the path is owned by a different module.
	SkipShadowed SkipReason = "shadowed"
)

// Collision records a route that was skipped because its path was bound.
type Collision struct {
	Path     string
	ModuleID string
	Method   string
	Owner    authority.Binding
	Reason   SkipReason
}

// Failure records a route whose registration raised an error.
type Failure struct {
	Path     string
	ModuleID string
	Method   string
	Err      error
}

func (f Failure) Error() string {
	return f.ModuleID + " " + f.Path + ": " + f.Err.Error()
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Stats is the outcome of one RegisterAll pass.
type Stats struct {
	RunID            string
	ModulesProcessed int
	Registered       int
	Skipped          int
	Errors           int
	Collisions       []Collision
	Failures         []Failure
}

// Total returns the number of entries processed.
func (s Stats) Total() int {
	return s.Registered + s.Skipped + s.Errors
}

// Redeclared counts skips where the declaring module already owned the path.
func (s Stats) Redeclared() int {
	return s.countReason(SkipRedeclared)
}

// Shadowed counts skips where another module owned the path.
func (s Stats) Shadowed() int {
	return s.countReason(SkipShadowed)
}

func (s Stats) countReason(reason SkipReason) int {
	n := 0
	for _, c := range s.Collisions {
		if c.Reason == reason {
			n++
		}
	}
	return n
}
