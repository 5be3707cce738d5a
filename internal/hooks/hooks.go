// Package hooks provides named extension points with ordered callbacks.
//
// A Point is declared by the package that invokes it, typed by the callback
// capability it expects. Callbacks run synchronously in registration order.
package hooks

import (
	"reflect"
	"slices"
	"sync"
)

// Point is a named extension point whose callbacks implement T.
type Point[T any] struct {
	name string
}

// NewPoint declares an extension point.
func NewPoint[T any](name string) Point[T] {
	return Point[T]{name: name}
}

// Name returns the extension point name.
func (p Point[T]) Name() string {
	return p.name
}

// key identifies a point by name and callback type, so points sharing a name
// but not a type never see each other's callbacks.
type key struct {
	name string
	typ  reflect.Type
}

func keyOf[T any](p Point[T]) key {
	return key{name: p.name, typ: reflect.TypeFor[T]()}
}

// Registry maps extension points to their registered callbacks.
type Registry struct {
	mu      sync.RWMutex
	entries map[key][]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[key][]any)}
}

// Register appends cb to the callbacks of point p.
func Register[T any](r *Registry, p Point[T], cb T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := keyOf(p)
	r.entries[k] = append(r.entries[k], cb)
}

// Callbacks returns the callbacks registered at p in registration order.
// A nil registry has no callbacks.
func Callbacks[T any](r *Registry, p Point[T]) []T {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	raw := r.entries[keyOf(p)]
	out := make([]T, 0, len(raw))
	for _, cb := range raw {
		if t, ok := cb.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// Names returns the sorted names of points that have at least one callback.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for k := range r.entries {
		if !slices.Contains(names, k.name) {
			names = append(names, k.name)
		}
	}
	slices.Sort(names)
	return names
}
