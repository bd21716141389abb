// Package queries loads named analytics query templates and renders them
// with typed bindings.
//
// Templates contain two token kinds. Double-brace tokens ({{name}}) are
// resolved at render time from a Bindings set and accept only a closed set
// of primitive values (integer, bounded string enum, ISO date) plus vetted
// structural fragments. Single-brace tokens ({name}) are left untouched:
// they are bound server-side by the query executor, so free-form values
// such as URL paths never get spliced into query text here.
package queries

import (
	"fmt"
	"strconv"
	"time"
)

// Binding is one rendered value for a template token.
type Binding struct {
	value string
	err   error
}

// Bindings maps token names to their values for one render call.
type Bindings map[string]Binding

// Int binds an integer literal (interval counts, limits).
func Int(n int) Binding {
	return Binding{value: strconv.Itoa(n)}
}

// Enum binds a string constrained to a closed set of allowed members.
// Rendering fails if the value is outside the set.
func Enum(value string, allowed ...string) Binding {
	for _, a := range allowed {
		if value == a {
			return Binding{value: value}
		}
	}
	return Binding{err: fmt.Errorf("value %q not in allowed set %v", value, allowed)}
}

// Date binds a calendar date rendered as ISO 2006-01-02.
func Date(t time.Time) Binding {
	return Binding{value: t.Format("2006-01-02")}
}

// Fragment binds a vetted, hand-authored structural clause that is included
// verbatim when enabled and renders to the empty string otherwise. Fragment
// content must never come from user input.
func Fragment(clause string, enabled bool) Binding {
	if !enabled {
		return Binding{value: ""}
	}
	return Binding{value: clause}
}

// Merge returns a new Bindings with entries from both sets; entries in
// other win on name collisions.
func (b Bindings) Merge(other Bindings) Bindings {
	merged := make(Bindings, len(b)+len(other))
	for name, binding := range b {
		merged[name] = binding
	}
	for name, binding := range other {
		merged[name] = binding
	}
	return merged
}
