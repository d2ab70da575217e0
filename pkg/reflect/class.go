package reflect

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
)

// ConstructFunc default-constructs a type in place, at payload. Captured at
// type registration instead of being an inherited virtual method - the Go
// analogue of the source's per-type function pointer captured alongside the
// field list.
type ConstructFunc func(payload unsafe.Pointer)

// Hooks bundles the two-phase destruction callbacks for a type. The source
// models OnBeginDestroy/IsDestroyFinished/OnEndDestroy as virtual methods;
// this runtime has no inheritance to dispatch through, so they're captured
// as function pointers alongside the field list and the construct callback,
// exactly like Class's own design note recommends. A nil hook gets the
// spec's documented default (no-op, or "true" for IsDestroyFinished).
type Hooks struct {
	OnBeginDestroy    func(payload unsafe.Pointer)
	IsDestroyFinished func(payload unsafe.Pointer) bool
	OnEndDestroy      func(payload unsafe.Pointer)
}

// Class is the per-type metadata record the pool and collector both key
// off: name, parent, payload size, owned field descriptors, the
// default-construct callback, and the canonical (static, non-pooled)
// instance used as the registration-time source of reflection info.
//
// A Class is itself an object in the spec's sense (self-describing: Class
// is registered as an object whose parent is the root object type) but this
// implementation keeps Class as a plain Go value - pooling the metadata
// record that describes pooling would only add an allocation cycle with no
// behavioral payoff in a language that already has a garbage-collected host
// runtime for its own bookkeeping structures.
type Class struct {
	name      string
	parent    *Class
	size      uintptr
	fields    []*Field
	construct ConstructFunc
	hooks     Hooks
	canonical unsafe.Pointer
}

// NewClass builds and validates a Class record. Panics (ConfigurationError)
// if a field descriptor is missing the metadata its kind requires - the
// runtime-rejection half of "refuse instantiation over ... an unsupported
// field type" (Go has no compile-time hook into FieldTypeFinder<T> the way
// the source's template specializations do).
func NewClass(name string, parent *Class, size uintptr, fields []*Field, construct ConstructFunc, hooks Hooks, canonical unsafe.Pointer) *Class {
	c := &Class{
		name:      name,
		parent:    parent,
		size:      size,
		fields:    fields,
		construct: construct,
		hooks:     hooks,
		canonical: canonical,
	}
	if err := c.validate(); err != nil {
		panic(errors.Wrapf(err, "reflect: configuring class %q", name))
	}
	return c
}

func (c *Class) validate() error {
	for _, f := range c.fields {
		switch f.Kind {
		case KindEnum:
			if f.Enum == nil {
				return errors.Errorf("field %q: enum field missing Enum metadata", f.Name)
			}
		case KindObject, KindStruct:
			if f.Class == nil {
				return errors.Errorf("field %q: %s field missing Class", f.Name, f.Kind)
			}
		case KindArray:
			if f.Element == nil {
				return errors.Errorf("field %q: array field missing Element descriptor", f.Name)
			}
		}
	}
	return nil
}

// Name is the class's display name.
func (c *Class) Name() string { return c.name }

// Parent is the class's declared parent, or nil for the root object type.
func (c *Class) Parent() *Class { return c.parent }

// Size is the payload size objects of this class are allocated with.
func (c *Class) Size() uintptr { return c.size }

// Fields returns the class's own field descriptors, declaration order.
func (c *Class) Fields() []*Field { return c.fields }

// Construct invokes the type's default-construct callback, placement-style,
// into payloadPtr. The caller is responsible for assigning the class
// back-pointer on the new object afterward.
func (c *Class) Construct(payload unsafe.Pointer) { c.construct(payload) }

// StaticInstance returns the per-type statically-allocated canonical
// instance: not pool-allocated, not subject to GC, used to source the field
// list during registration and as Class::StaticInstance()'s default value.
func (c *Class) StaticInstance() unsafe.Pointer { return c.canonical }

// RunOnBeginDestroy invokes the type's OnBeginDestroy hook, if any.
func (c *Class) RunOnBeginDestroy(payload unsafe.Pointer) {
	if c.hooks.OnBeginDestroy != nil {
		c.hooks.OnBeginDestroy(payload)
	}
}

// RunIsDestroyFinished invokes the type's IsDestroyFinished hook. Defaults
// to true, so destruction completes in the same cycle it begins unless a
// type opts into deferring reclamation.
func (c *Class) RunIsDestroyFinished(payload unsafe.Pointer) bool {
	if c.hooks.IsDestroyFinished != nil {
		return c.hooks.IsDestroyFinished(payload)
	}
	return true
}

// RunOnEndDestroy invokes the type's OnEndDestroy hook, if any.
func (c *Class) RunOnEndDestroy(payload unsafe.Pointer) {
	if c.hooks.OnEndDestroy != nil {
		c.hooks.OnEndDestroy(payload)
	}
}

// IsDerivedFrom walks the parent chain until it finds other or runs out of
// parents. this == other short-circuits true.
func (c *Class) IsDerivedFrom(other *Class) bool {
	if other == nil {
		return false
	}
	for cur := c; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

var (
	universalMu sync.Mutex
	universal   []*Class
	byGoType    = map[reflect.Type]*Class{}
)

// StaticClass returns the stable Class record for T, constructing it via
// build on first call and idempotently on every call thereafter. This is
// the Go rendering of StaticClass<T>(): the first call constructs and
// configures the record. The record is not root-pinned: a Class is a plain
// Go value, not a pooled object (see Class above).
//
// build is allowed to recursively call StaticClass for a parent type; the
// registry only takes its lock around the map lookup/insert, not across
// build(), so that recursion can't deadlock.
func StaticClass[T any](build func() *Class) *Class {
	var zero T
	t := reflect.TypeOf(zero)

	universalMu.Lock()
	if c, ok := byGoType[t]; ok {
		universalMu.Unlock()
		return c
	}
	universalMu.Unlock()

	c := build()

	universalMu.Lock()
	defer universalMu.Unlock()
	if existing, ok := byGoType[t]; ok {
		return existing
	}
	byGoType[t] = c
	universal = append(universal, c)
	return c
}

// GetDerivedClasses linearly scans the universal registry and returns every
// class (excluding of itself) whose parent chain contains of.
func GetDerivedClasses(of *Class) []*Class {
	var result []*Class
	for _, c := range universal {
		if c == of {
			continue
		}
		if c.IsDerivedFrom(of) {
			result = append(result, c)
		}
	}
	return result
}

// AllClasses returns every class in the universal registry, registration
// order.
func AllClasses() []*Class {
	return append([]*Class(nil), universal...)
}
