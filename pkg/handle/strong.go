package handle

import (
	"sync"
	"unsafe"

	"objsys/pkg/object"
	"objsys/pkg/pool"
	"objsys/pkg/reflect"
	"objsys/pkg/rtypes"
)

// strongRegistry is the GC-managed, root-pinned object backing every Strong
// handle: a single Object whose Objects field is a reflected Array-of-
// -Object, so the collector traces straight through it like any other
// object-graph edge - a strong handle keeps its target alive by giving it
// an edge from a rooted object, not by sidestepping the tracer. Mirrors the
// source's StrongObjectPtrManager.
type strongRegistry struct {
	object.Object
	Objects reflect.ObjectArray
	mu      sync.Mutex
}

var strongRegistryClass = reflect.StaticClass[strongRegistry](func() *reflect.Class {
	var canonical strongRegistry
	base := unsafe.Pointer(&canonical)
	element := reflect.NewObjectField(0, "element", object.RootClass)
	fields := []*reflect.Field{
		reflect.NewArrayField(
			reflect.OffsetOf(base, unsafe.Pointer(&canonical.Objects)),
			"Objects", element,
		),
	}
	return reflect.NewClass("StrongObjectPtrManager", object.RootClass, unsafe.Sizeof(canonical), fields,
		func(payload unsafe.Pointer) { *(*strongRegistry)(payload) = strongRegistry{} },
		reflect.Hooks{}, base,
	)
})

// strongRegistries holds one strongRegistry per pool.Registry: the source
// has exactly one process-wide ObjectPool/root-set pair and so gets away
// with a single static manager, but this runtime lets an embedding program
// run several independent Contexts (see pkg/runtime), each with its own
// pool registry and root set - so the strong-handle manager is keyed the
// same way, one per pool.Registry, instead of being a true global.
var strongRegistries sync.Map // map[*pool.Registry]*strongRegistry

// staticStrongRegistry lazily allocates registry's strong-handle manager
// out of registry itself, then re-roots it on every call in case it was
// ever (incorrectly) removed - matching the source's StaticStrongObjectPtr-
// Manager(), which re-adds to the root set whenever InRootSet isn't set.
func staticStrongRegistry(registry *pool.Registry) *strongRegistry {
	var inst *strongRegistry
	if v, ok := strongRegistries.Load(registry); ok {
		inst = v.(*strongRegistry)
	} else {
		obj := object.New(registry, strongRegistryClass)
		candidate := (*strongRegistry)(unsafe.Pointer(obj))
		actual, loaded := strongRegistries.LoadOrStore(registry, candidate)
		inst = actual.(*strongRegistry)
		if loaded {
			// Another goroutine built one concurrently; candidate is simply
			// an unrooted, unused object that the next collection sweeps.
			_ = candidate
		}
	}

	h := pool.HeaderFor(unsafe.Pointer(&inst.Object))
	if h != nil && !rtypes.HasAny(h.Flags, pool.FlagInRootSet) {
		inst.AddToRootSet()
	}
	return inst
}

func (r *strongRegistry) register(obj *object.Object) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	target := unsafe.Pointer(obj)
	for i, slot := range r.Objects {
		if slot == nil {
			r.Objects[i] = target
			return i
		}
	}
	r.Objects = append(r.Objects, target)
	return len(r.Objects) - 1
}

func (r *strongRegistry) unregister(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.Objects) {
		return
	}
	r.Objects[index] = nil
	last := len(r.Objects)
	for last > 0 && r.Objects[last-1] == nil {
		last--
	}
	r.Objects = r.Objects[:last]
}

// Strong is a retaining reference: as long as it exists, the referenced
// object survives collection even if nothing in the traced graph points to
// it, because it holds an edge from the rooted strong-handle registry.
// Still becomes invalid if the underlying object is explicitly destroyed -
// retention and validity are separate concerns, exactly as in the source.
type Strong[T any] struct {
	payload unsafe.Pointer
	index   int
}

// NewStrong registers obj with registry's strong-handle registry, pinning
// it alive for as long as the handle exists.
func NewStrong[T any](registry *pool.Registry, obj *T) Strong[T] {
	if obj == nil {
		return Strong[T]{index: -1}
	}
	base := (*object.Object)(unsafe.Pointer(obj))
	mgr := staticStrongRegistry(registry)
	return Strong[T]{
		payload: unsafe.Pointer(obj),
		index:   mgr.register(base),
	}
}

// Release unregisters the handle from the strong-handle registry, dropping
// its retaining edge. The target may be collected on the next cycle unless
// something else still reaches it.
func (s *Strong[T]) Release(registry *pool.Registry) {
	if s.index < 0 {
		return
	}
	staticStrongRegistry(registry).unregister(s.index)
	s.index = -1
	s.payload = nil
}

// IsValid reports whether the referenced object is still alive. A strong
// handle keeps its target's memory retained even after destruction; IsValid
// still reports false once the object has been destroyed.
func (s Strong[T]) IsValid() bool {
	if s.payload == nil {
		return false
	}
	return object.IsValid((*object.Object)(s.payload))
}

// Get returns the referenced object, or nil if it's no longer valid.
func (s Strong[T]) Get() *T {
	if !s.IsValid() {
		return nil
	}
	return (*T)(s.payload)
}
