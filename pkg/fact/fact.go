// Package fact implements the read-only fact environment a condition or
// template is evaluated against: the original facts overlaid by writes
// accumulated so far in one reason() call (spec.md §3, §4.4).
package fact

import "github.com/symbolica/symbolica/pkg/value"

// Map is a mapping of identifier strings to Values — the input
// to one reason() call.
type Map map[string]value.Value

// Env is the environment a condition or template is evaluated against:
// the original facts overlaid by writes accumulated so far in the
// current reason() call. Reads consult the overlay first, then the
// original facts, per spec.md §4.2.
type Env struct {
	original Map
	overlay  Map
}

// NewEnv creates an environment over the given original facts with an
// empty overlay.
func NewEnv(original Map) *Env {
	cp := make(Map, len(original))
	for k, v := range original {
		cp[k] = v
	}
	return &Env{original: cp, overlay: make(Map)}
}

// Lookup reads a name, overlay first then original facts. ok is false
// when the name is bound nowhere.
func (e *Env) Lookup(name string) (value.Value, bool) {
	if v, ok := e.overlay[name]; ok {
		return v, true
	}
	v, ok := e.original[name]
	return v, ok
}

// Write records a value into the overlay, to be seen by any later read
// within the same reason() call (spec.md §4.4.c).
func (e *Env) Write(name string, v value.Value) {
	e.overlay[name] = v
}

// Verdict returns the facts merged with the overlay, restricted to the
// keys written during this call — the Execution Result's verdict map
// (spec.md §3).
func (e *Env) Verdict() Map {
	out := make(Map, len(e.overlay))
	for k, v := range e.overlay {
		out[k] = v
	}
	return out
}

// Snapshot returns the full merged view (facts ∪ overlay), for callers
// that want the complete environment rather than only written fields.
func (e *Env) Snapshot() Map {
	out := make(Map, len(e.original)+len(e.overlay))
	for k, v := range e.original {
		out[k] = v
	}
	for k, v := range e.overlay {
		out[k] = v
	}
	return out
}

// WrittenBy reports whether name has been written to the overlay yet.
func (e *Env) WrittenBy(name string) bool {
	_, ok := e.overlay[name]
	return ok
}
