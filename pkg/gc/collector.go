// Package gc implements the tracing mark-and-sweep collector: a mark phase
// that walks the object graph outward from the root set, auto-nulling
// references into anything mid-teardown, and a sweep phase that destroys
// and reclaims everything the mark phase didn't reach.
//
// Grounded on chrissinclair/object_system's Private/GarbageCollection.cpp.
package gc

import (
	"unsafe"

	"go.uber.org/zap"

	"objsys/pkg/object"
	"objsys/pkg/pool"
	reflectpkg "objsys/pkg/reflect"
	"objsys/pkg/rtypes"
)

// Collector owns one collection cycle's worth of state: the pool registry
// it sweeps and the logger corrupt headers get reported through. Corrupt
// headers (bad magic) are a skip-and-warn condition, never a panic - the
// same non-fatal posture the source's "TODO: this is bad" comments imply.
type Collector struct {
	registry *pool.Registry
	log      *zap.Logger
	stats    *Stats
}

// New builds a collector over registry, logging through log and reporting
// through stats. A nil log or stats is replaced with a no-op equivalent.
func New(registry *pool.Registry, log *zap.Logger, stats *Stats) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	if stats == nil {
		stats = NewStats()
	}
	return &Collector{registry: registry, log: log, stats: stats}
}

// Collect runs one full mark-and-sweep cycle: mark from every root, then
// sweep every pool, destroying and reclaiming whatever the mark phase left
// flagged Unreachable.
func (c *Collector) Collect() {
	c.stats.cycles.Inc()

	for _, root := range object.RootSet(c.registry) {
		h := pool.HeaderFor(unsafe.Pointer(root))
		if h == nil {
			c.log.Warn("gc: root set entry has a corrupt or missing header, skipping")
			continue
		}
		if !rtypes.HasAny(h.Flags, pool.FlagUnreachable) {
			continue
		}
		h.Flags &^= pool.FlagUnreachable
		c.traceObject(root)
	}

	for _, p := range c.registry.Pools() {
		c.sweepPool(p)
	}
}

// traceObject walks object's class's field list, following every Object,
// Struct and Array field to whatever it reaches.
func (c *Collector) traceObject(o *object.Object) {
	class := o.Class()
	if class == nil {
		return
	}
	c.traceFields(unsafe.Pointer(o), class.Fields())
}

func (c *Collector) traceFields(base unsafe.Pointer, fields []*reflectpkg.Field) {
	for _, f := range fields {
		switch f.Kind {
		case reflectpkg.KindObject:
			c.markReachableSlot(f.ObjectPtr(base))
		case reflectpkg.KindStruct:
			c.traceFields(f.StructBase(base), f.Class.Fields())
		case reflectpkg.KindArray:
			c.traceArray(f.UntypedPtr(base), f.Element)
		}
	}
}

func (c *Collector) traceArray(arrayBase unsafe.Pointer, element *reflectpkg.Field) {
	switch element.Kind {
	case reflectpkg.KindObject:
		arr := (*reflectpkg.ObjectArray)(arrayBase)
		for i := range *arr {
			c.markReachableSlot(&(*arr)[i])
		}
	case reflectpkg.KindStruct:
		if element.Class == nil {
			return
		}
		stride := element.Class.Size()
		if stride == 0 {
			return
		}
		raw := (*reflectpkg.StructArray)(arrayBase)
		count := reflectpkg.StructArrayLen(*raw, stride)
		for i := 0; i < count; i++ {
			elemBase := reflectpkg.StructArrayElementBase(*raw, i, stride)
			c.traceFields(elemBase, element.Class.Fields())
		}
	default:
		// Arrays of any other element kind carry no outgoing graph edges.
	}
}

// markReachableSlot is handed a pointer to a slot holding a raw object
// reference (an *Object field, or one element of an Array<Object>). If the
// referenced slot is still flagged Unreachable, it clears the flag and
// recurses into it. Slots referencing an object that's mid-teardown or torn
// down get nulled in place, so no live object is left holding a dangling
// reference once sweep reclaims it.
func (c *Collector) markReachableSlot(slot *unsafe.Pointer) {
	if slot == nil || *slot == nil {
		return
	}
	target := *slot
	h := pool.HeaderFor(target)
	if h == nil {
		c.log.Warn("gc: traced reference has a corrupt header, dropping it")
		*slot = nil
		return
	}

	if rtypes.HasAny(h.Flags, pool.FlagUnreachable) {
		h.Flags &^= pool.FlagUnreachable
		c.traceObject((*object.Object)(target))
	}

	if rtypes.HasAny(h.Flags, pool.FlagIsBeingDestroyed|pool.FlagIsDestroyed) {
		*slot = nil
	}
}

// sweepPool walks every slot of every block in p, regardless of freelist
// state: allocated-and-still-Unreachable slots get destroyed and freed;
// everything else still allocated gets re-armed Unreachable for the next
// cycle.
func (c *Collector) sweepPool(p *pool.Pool) {
	swept, live := 0, 0
	for b := 0; b < p.BlockCount(); b++ {
		for s := 0; s < p.SlotsPerBlock(); s++ {
			payload := p.SlotAt(b, s)
			h := pool.HeaderFor(payload)
			if h == nil {
				c.log.Warn("gc: sweep encountered a corrupt slot header, skipping")
				continue
			}
			if !rtypes.HasAny(h.Flags, pool.FlagAllocated) {
				continue
			}

			if rtypes.HasAny(h.Flags, pool.FlagUnreachable) {
				obj := (*object.Object)(payload)
				if !rtypes.HasAny(h.Flags, pool.FlagIsBeingDestroyed|pool.FlagIsDestroyed) {
					obj.Destroy()
				}
				if !rtypes.HasAny(h.Flags, pool.FlagIsDestroyed) {
					obj.TryCompleteDestruction()
				}
				if rtypes.HasAny(h.Flags, pool.FlagIsDestroyed) {
					p.Free(payload)
					swept++
					continue
				}
				// Destruction deferred a phase; stays Unreachable, swept
				// again next cycle.
				continue
			}

			h.Flags |= pool.FlagUnreachable
			live++
		}
	}
	c.stats.observePool(p, live, swept)
}
