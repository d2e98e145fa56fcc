package domain

import (
	"maps"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance used for struct validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// cloneAnyMap creates a shallow copy of a payload map to prevent aliasing.
// Returns nil for nil input to maintain consistency.
func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	maps.Copy(result, m)
	return result
}

// cloneStringSlice copies a string slice, preserving nil.
func cloneStringSlice(s []string) []string {
	if s == nil {
		return nil
	}
	result := make([]string, len(s))
	copy(result, s)
	return result
}
