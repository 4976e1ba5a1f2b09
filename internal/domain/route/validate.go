package route

import (
	"fmt"
	"regexp"
	"strings"
)

// pathPattern is the dotted lowercase naming convention for capability paths.
var pathPattern = regexp.MustCompile(`^[a-z0-9_-]+(\.[a-z0-9_-]+)*$`)

// ValidationError reports every structural problem found in a manifest.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest validation failed:\n- %s", strings.Join(e.Problems, "\n- "))
}

// ValidPath reports whether path follows the dotted lowercase convention.
func ValidPath(path string) bool {
	return pathPattern.MatchString(path)
}

// validate checks module ids, paths and methods. It returns nil when the sets
// form a well-formed manifest.
func validate(sets []ModuleRouteSet) error {
	var problems []string
	seen := make(map[string]int, len(sets))

	for i, set := range sets {
		if strings.TrimSpace(set.ModuleID) == "" {
			problems = append(problems, fmt.Sprintf("module %d: moduleId is required", i))
		} else if first, dup := seen[set.ModuleID]; dup {
			problems = append(problems, fmt.Sprintf("module %d: duplicate moduleId %q (first declared at module %d)", i, set.ModuleID, first))
		} else {
			seen[set.ModuleID] = i
		}

		for j, r := range set.Routes {
			label := fmt.Sprintf("module %q route %d", set.ModuleID, j)
			switch {
			case r.Path == "":
				problems = append(problems, label+": path is required")
			case !ValidPath(r.Path):
				problems = append(problems, fmt.Sprintf("%s: path %q must be dotted lowercase (e.g. engine.svd.calculate)", label, r.Path))
			}
			if strings.TrimSpace(r.Method) == "" {
				problems = append(problems, label+": method is required")
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
