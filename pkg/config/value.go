package config

import "fmt"

// Value wraps a raw configuration value together with a description of the
// source that supplied it. Provenance survives layer merging so diagnostics
// can report where any resolved key came from.
type Value struct {
	value  any
	source string
}

// NewValue wraps value with its source description.
func NewValue(value any, source string) *Value {
	return &Value{value: value, source: source}
}

// Value returns the wrapped raw value.
func (v *Value) Value() any { return v.value }

// Source returns a description of where the value came from.
func (v *Value) Source() string { return v.source }

func (v *Value) String() string {
	return fmt.Sprintf("%v (from %s)", v.value, v.source)
}

// Unwrap returns the raw value inside a *Value, or the input unchanged when
// it is not wrapped. Wrapping is optional sugar, never required.
func Unwrap(v any) any {
	if cv, ok := v.(*Value); ok {
		return cv.value
	}
	return v
}

// ConvertLeavesToValues walks an arbitrarily nested structure of maps and
// slices and replaces every *Value leaf with its raw value. Plain data
// passes through untouched, so the function is idempotent.
func ConvertLeavesToValues(tree any) any {
	switch t := tree.(type) {
	case *Value:
		return ConvertLeavesToValues(t.value)
	case map[string]any:
		converted := make(map[string]any, len(t))
		for k, v := range t {
			converted[k] = ConvertLeavesToValues(v)
		}
		return converted
	case []any:
		converted := make([]any, len(t))
		for i, v := range t {
			converted[i] = ConvertLeavesToValues(v)
		}
		return converted
	default:
		return tree
	}
}

// WrapLeaves walks an arbitrarily nested structure of maps and slices and
// wraps every plain leaf in a *Value carrying source. Already-wrapped
// leaves keep their original source.
func WrapLeaves(tree any, source string) any {
	switch t := tree.(type) {
	case *Value:
		return t
	case map[string]any:
		wrapped := make(map[string]any, len(t))
		for k, v := range t {
			wrapped[k] = WrapLeaves(v, source)
		}
		return wrapped
	case []any:
		wrapped := make([]any, len(t))
		for i, v := range t {
			wrapped[i] = WrapLeaves(v, source)
		}
		return wrapped
	default:
		return NewValue(tree, source)
	}
}
