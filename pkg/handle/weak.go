// Package handle implements the two reference flavors: weak handles, which
// observe an object without keeping it alive, and strong handles, which keep
// an object alive by giving it an edge from a rooted, traced registry object.
//
// Grounded on chrissinclair/object_system's WeakObjectPtr/StrongObjectPtr
// pair in Public/Object/Object.h and Private/Object.cpp.
package handle

import (
	"unsafe"

	"objsys/pkg/object"
	"objsys/pkg/pool"
)

// Weak is a non-retaining reference: it observes an object but never
// prevents it being collected, and detects both destruction and
// generation-reuse (the slot was freed and handed back out to a new
// allocation) as invalidation.
type Weak[T any] struct {
	payload    unsafe.Pointer
	generation uint16
}

// NewWeak captures obj's current generation. A nil or already-invalid obj
// produces a handle that is permanently invalid.
func NewWeak[T any](obj *T) Weak[T] {
	base := (*object.Object)(unsafe.Pointer(obj))
	if !object.IsValid(base) {
		return Weak[T]{}
	}
	h := pool.HeaderFor(unsafe.Pointer(obj))
	return Weak[T]{payload: unsafe.Pointer(obj), generation: h.Generation}
}

// IsValid reports whether the referenced slot is still alive and still on
// the generation this handle was constructed against.
func (w Weak[T]) IsValid() bool {
	if w.payload == nil {
		return false
	}
	h := pool.HeaderFor(w.payload)
	return h != nil && h.IsAlive() && h.Generation == w.generation
}

// Get returns the referenced object, or nil if the handle is no longer
// valid.
func (w Weak[T]) Get() *T {
	if !w.IsValid() {
		return nil
	}
	return (*T)(w.payload)
}
