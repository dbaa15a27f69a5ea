package discovery

import (
	"maps"
	"slices"
	"strings"
)

// ValidationError carries the field errors of a rejected film so they can
// travel as an error. Handlers unwrap it with errors.As.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, field := range slices.Sorted(maps.Keys(e.Errors)) {
		parts = append(parts, field+": "+e.Errors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
