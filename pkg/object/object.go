// Package object is the base every pooled type embeds: the class
// back-pointer, the root set, and the two-phase destruction protocol.
// Grounded on chrissinclair/object_system's Public/Object/Object.h and
// Private/Object.cpp.
//
// A concrete type embeds Object as its first field, the same way the
// source derives every pooled type from class Object:
//
//	type Node struct {
//	    object.Object
//	    Next *Node
//	}
//
// Go guarantees a struct's first field sits at offset zero, so
// unsafe.Pointer(&node.Object) and unsafe.Pointer(&node) are the same
// address: the object base IS the payload base, exactly like the source's
// single-inheritance layout.
package object

import (
	"sync"
	"unsafe"

	"objsys/pkg/pool"
	"objsys/pkg/reflect"
	"objsys/pkg/rtypes"
)

// Object is the common header every reflected, pool-allocated type carries:
// the class this payload was constructed as, and the registry it was
// allocated through. Everything else (liveness, generation, root
// membership) lives in the pool.Header prefix, derived on demand from the
// payload address. The registry back-pointer is what lets the root set be
// scoped per registry (see rootSets below) instead of being one true
// process-wide global.
type Object struct {
	classInstance *reflect.Class
	registry      *pool.Registry
}

// RootClass is the reflection record for Object itself: no parent, no
// fields. Every other class's parent chain ultimately terminates here,
// mirroring Detail::ConfigureClass<Object> in the source.
var RootClass = reflect.StaticClass[Object](func() *reflect.Class {
	var canonical Object
	return reflect.NewClass("Object", nil, unsafe.Sizeof(canonical), nil,
		func(payload unsafe.Pointer) { *(*Object)(payload) = Object{} },
		reflect.Hooks{}, unsafe.Pointer(&canonical))
})

func (o *Object) ptr() unsafe.Pointer { return unsafe.Pointer(o) }

// Class returns the runtime type this object was constructed as.
func (o *Object) Class() *reflect.Class { return o.classInstance }

// header derives this object's pool header, or nil if the payload address
// doesn't carry a valid header magic. A freed slot keeps its magic, so its
// header is still returned.
func (o *Object) header() *pool.Header { return pool.HeaderFor(o.ptr()) }

// IsValid reports whether o is non-nil and currently a live, non-destroyed
// slot. Equivalent to the source's IsValid(Object*) free function.
func IsValid(o *Object) bool {
	if o == nil {
		return false
	}
	h := pool.HeaderFor(o.ptr())
	return h != nil && h.IsAlive()
}

// GetGeneration returns the slot's current generation counter, the value a
// weak handle compares itself against to detect a freed-and-reused slot.
func (o *Object) GetGeneration() uint16 {
	h := o.header()
	if h == nil {
		return 0
	}
	return h.Generation
}

// IsBeingDestroyed reports whether this object has entered, but not yet
// finished, two-phase destruction.
func (o *Object) IsBeingDestroyed() bool {
	h := o.header()
	return h != nil && rtypes.HasAny(h.Flags, pool.FlagIsBeingDestroyed)
}

// IsDestroyed reports whether this object's destructor has run to
// completion. A destroyed slot is still addressable until the collector's
// sweep phase actually frees it.
func (o *Object) IsDestroyed() bool {
	h := o.header()
	return h != nil && rtypes.HasAny(h.Flags, pool.FlagIsDestroyed)
}

// Destroy begins two-phase destruction: marks the slot IsBeingDestroyed,
// fires the class's OnBeginDestroy hook, then immediately attempts to
// complete teardown in the same call - most types finish in one phase,
// matching the source's TryCompleteDestruction-from-Destroy default path.
func (o *Object) Destroy() {
	h := o.header()
	if h == nil {
		return
	}
	h.Flags |= pool.FlagIsBeingDestroyed
	h.Flags &^= pool.FlagIsDestroyed
	if o.classInstance != nil {
		o.classInstance.RunOnBeginDestroy(o.ptr())
	}
	o.TryCompleteDestruction()
}

// TryCompleteDestruction polls the class's IsDestroyFinished hook and, once
// it reports true, fires OnEndDestroy and flips the slot to IsDestroyed.
// Safe to call repeatedly - it's a no-op once destruction has finished, and
// a no-op if Destroy was never called.
func (o *Object) TryCompleteDestruction() bool {
	h := o.header()
	if h == nil {
		return false
	}
	if !rtypes.HasAny(h.Flags, pool.FlagIsBeingDestroyed) {
		return rtypes.HasAny(h.Flags, pool.FlagIsDestroyed)
	}
	finished := true
	if o.classInstance != nil {
		finished = o.classInstance.RunIsDestroyFinished(o.ptr())
	}
	if !finished {
		return false
	}
	if o.classInstance != nil {
		o.classInstance.RunOnEndDestroy(o.ptr())
	}
	h.Flags &^= pool.FlagIsBeingDestroyed
	h.Flags |= pool.FlagIsDestroyed
	return true
}

// AddToRootSet pins o as a GC root: it and everything it transitively
// reaches survive collection regardless of whether anything else in the
// heap points to it. Duplicate membership is permitted; the source places
// no uniqueness requirement on its root vector either.
func (o *Object) AddToRootSet() { AddToRootSet(o) }

// RemoveFromRootSet un-pins o, removing every occurrence of it from the
// root set. Once unrooted, o survives only as long as something else
// reachable from a root still points to it.
func (o *Object) RemoveFromRootSet() { RemoveFromRootSet(o) }

// New allocates and default-constructs an object of class through
// registry, assigns its class back-pointer, and returns the raw Object
// base. Typed callers reinterpret the result as their concrete type, which
// is safe because Object sits at offset zero of every embedding type.
func New(registry *pool.Registry, class *reflect.Class) *Object {
	payload := registry.Allocate(uint32(class.Size()))
	if payload == nil {
		return nil
	}
	class.Construct(payload)
	o := (*Object)(payload)
	o.classInstance = class
	o.registry = registry
	return o
}

// rootSets holds one root-object slice per pool.Registry. An embedding
// application can run several independent runtime Contexts (see
// objsys/pkg/runtime), each with its own pool registry; a single process-
// wide root set would let one Context's roots keep another Context's
// memory alive (or worse, have one Context's collector walk addresses that
// belong to a different Context's pools). Scoping by registry, the same way
// pkg/handle scopes its strong-handle registry, keeps every Context's mark
// phase confined to its own object graph.
var (
	rootMu   sync.Mutex
	rootSets = make(map[*pool.Registry][]*Object)
)

// AddToRootSet pins obj as a GC root within its own registry's root set.
func AddToRootSet(obj *Object) {
	if obj == nil || obj.registry == nil {
		return
	}
	rootMu.Lock()
	rootSets[obj.registry] = append(rootSets[obj.registry], obj)
	rootMu.Unlock()
	if h := pool.HeaderFor(obj.ptr()); h != nil {
		h.Flags |= pool.FlagInRootSet
	}
}

// RemoveFromRootSet un-pins every occurrence of obj from its registry's
// root set.
func RemoveFromRootSet(obj *Object) {
	if obj == nil || obj.registry == nil {
		return
	}
	rootMu.Lock()
	set := rootSets[obj.registry]
	kept := set[:0]
	for _, r := range set {
		if r != obj {
			kept = append(kept, r)
		}
	}
	rootSets[obj.registry] = kept
	rootMu.Unlock()
	if h := pool.HeaderFor(obj.ptr()); h != nil {
		h.Flags &^= pool.FlagInRootSet
	}
}

// RootSet returns a snapshot of registry's current root set, registration
// order.
func RootSet(registry *pool.Registry) []*Object {
	rootMu.Lock()
	defer rootMu.Unlock()
	return append([]*Object(nil), rootSets[registry]...)
}
