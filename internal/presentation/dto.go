package presentation

import (
	"time"

	"github.com/zjrosen/routegate/internal/authority"
	"github.com/zjrosen/routegate/internal/coverage"
	"github.com/zjrosen/routegate/internal/domain/route"
	"github.com/zjrosen/routegate/internal/gateway"
	"github.com/zjrosen/routegate/internal/pubsub"
	"github.com/zjrosen/routegate/internal/registrar"
)

// BindingDTO represents the module method that serves a path
type BindingDTO struct {
	Path     string `json:"path,omitempty"`
	ModuleID string `json:"module_id"`
	Method   string `json:"method"`
}

// CollisionDTO represents a skipped route and the binding that kept it out
type CollisionDTO struct {
	Path     string     `json:"path"`
	ModuleID string     `json:"module_id"`
	Method   string     `json:"method"`
	Owner    BindingDTO `json:"owner"`
	Reason   string     `json:"reason"`
}

// FailureDTO represents a route whose registration raised an error
type FailureDTO struct {
	Path     string `json:"path"`
	ModuleID string `json:"module_id"`
	Method   string `json:"method"`
	Error    string `json:"error"`
}

// StatsDTO represents the outcome of one registration pass
type StatsDTO struct {
	RunID            string         `json:"run_id"`
	ModulesProcessed int            `json:"modules_processed"`
	Registered       int            `json:"registered"`
	Skipped          int            `json:"skipped"`
	Errors           int            `json:"errors"`
	Redeclared       int            `json:"redeclared"`
	Shadowed         int            `json:"shadowed"`
	Collisions       []CollisionDTO `json:"collisions"` // always present, possibly empty
	Failures         []FailureDTO   `json:"failures"`
}

// CoverageDTO represents a coverage report
type CoverageDTO struct {
	TotalModules     int      `json:"total_modules"`
	TotalRoutes      int      `json:"total_routes"`
	RegisteredRoutes int      `json:"registered_routes"`
	CoveragePercent  string   `json:"coverage_percent"`
	RegistrySize     int      `json:"registry_size"`
	Unbound          []string `json:"unbound,omitempty"`
}

// MismatchDTO represents a declared route bound to a different owner
type MismatchDTO struct {
	Path     string     `json:"path"`
	Declared BindingDTO `json:"declared"`
	Actual   BindingDTO `json:"actual"`
}

// RegisterResultDTO is the output of the register command
type RegisterResultDTO struct {
	Stats      StatsDTO      `json:"stats"`
	Coverage   CoverageDTO   `json:"coverage"`
	Mismatches []MismatchDTO `json:"mismatches,omitempty"`
}

// DuplicateDTO represents a path declared more than once
type DuplicateDTO struct {
	Path         string       `json:"path"`
	Kind         string       `json:"kind"`
	Declarations []BindingDTO `json:"declarations"`
}

// CheckResultDTO is the output of the check command
type CheckResultDTO struct {
	Modules    int            `json:"modules"`
	Routes     int            `json:"routes"`
	Duplicates []DuplicateDTO `json:"duplicates"`
}

// EventDTO represents a registration outcome streamed by the watch command
type EventDTO struct {
	Type      string       `json:"type"`
	Seq       uint64       `json:"seq"`
	Timestamp time.Time    `json:"timestamp"`
	Source    string       `json:"source,omitempty"`
	Stats     *StatsDTO    `json:"stats,omitempty"`
	Coverage  *CoverageDTO `json:"coverage,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// FromBinding converts a registry binding to a DTO
func FromBinding(path string, b authority.Binding) BindingDTO {
	return BindingDTO{Path: path, ModuleID: b.ModuleID, Method: b.Method}
}

// FromStats converts registration stats to a DTO
func FromStats(s registrar.Stats) StatsDTO {
	collisions := make([]CollisionDTO, len(s.Collisions))
	for i, c := range s.Collisions {
		collisions[i] = CollisionDTO{
			Path:     c.Path,
			ModuleID: c.ModuleID,
			Method:   c.Method,
			Owner:    FromBinding("", c.Owner),
			Reason:   string(c.Reason),
		}
	}

	failures := make([]FailureDTO, len(s.Failures))
	for i, f := range s.Failures {
		failures[i] = FailureDTO{
			Path:     f.Path,
			ModuleID: f.ModuleID,
			Method:   f.Method,
			Error:    f.Err.Error(),
		}
	}

	return StatsDTO{
		RunID:            s.RunID,
		ModulesProcessed: s.ModulesProcessed,
		Registered:       s.Registered,
		Skipped:          s.Skipped,
		Errors:           s.Errors,
		Redeclared:       s.Redeclared(),
		Shadowed:         s.Shadowed(),
		Collisions:       collisions,
		Failures:         failures,
	}
}

// FromReport converts a coverage report to a DTO
func FromReport(r coverage.Report) CoverageDTO {
	return CoverageDTO{
		TotalModules:     r.TotalModules,
		TotalRoutes:      r.TotalRoutes,
		RegisteredRoutes: r.RegisteredRoutes,
		CoveragePercent:  r.CoveragePercent,
		RegistrySize:     r.RegistrySize,
		Unbound:          r.Unbound,
	}
}

// FromRegistration combines stats, report and audit output
func FromRegistration(s registrar.Stats, r coverage.Report, mismatches []coverage.Mismatch) RegisterResultDTO {
	out := RegisterResultDTO{Stats: FromStats(s), Coverage: FromReport(r)}
	for _, m := range mismatches {
		out.Mismatches = append(out.Mismatches, MismatchDTO{
			Path:     m.Path,
			Declared: FromBinding("", m.Declared),
			Actual:   FromBinding("", m.Actual),
		})
	}
	return out
}

// FromManifest summarizes a manifest and its duplicate paths
func FromManifest(m route.Manifest) CheckResultDTO {
	dups := m.Duplicates()
	out := CheckResultDTO{
		Modules:    m.Len(),
		Routes:     m.RouteCount(),
		Duplicates: make([]DuplicateDTO, len(dups)),
	}
	for i, d := range dups {
		decls := make([]BindingDTO, len(d.Declarations))
		for j, decl := range d.Declarations {
			decls[j] = BindingDTO{ModuleID: decl.ModuleID, Method: decl.Method}
		}
		out.Duplicates[i] = DuplicateDTO{Path: d.Path, Kind: string(d.Kind), Declarations: decls}
	}
	return out
}

// FromEvent converts a gateway event to a DTO
func FromEvent(ev pubsub.Event[gateway.Outcome]) EventDTO {
	out := EventDTO{
		Type:      string(ev.Type),
		Seq:       ev.Seq,
		Timestamp: ev.Timestamp,
		Source:    ev.Payload.Source,
	}
	if ev.Payload.Err != nil {
		out.Error = ev.Payload.Err.Error()
		return out
	}
	stats := FromStats(ev.Payload.Stats)
	report := FromReport(ev.Payload.Report)
	out.Stats = &stats
	out.Coverage = &report
	return out
}
