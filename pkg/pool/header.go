// Package pool implements the block-backed, freelist-driven fixed-stride
// slot allocator every object in the runtime is carved out of. Each pool
// services exactly one payload-size class; an allocation is a header-prefixed
// slot popped off a freelist, growing the pool by one 128-slot block when the
// freelist runs dry.
//
// Grounded on chrissinclair/object_system's Private/ObjectPool.{h,cpp}: same
// header layout, same freelist/block growth, same generation-bump-on-
// allocate-and-free contract.
package pool

import "objsys/pkg/rtypes"

// Flags is the bitset carried in every object header.
type Flags uint8

// IsFlagsEnum opts Flags into the rtypes flag helpers (rtypes.HasAny, etc).
func (Flags) IsFlagsEnum() bool { return true }

const (
	// FlagAllocated is set while the slot holds a live, constructed object.
	FlagAllocated Flags = 1 << iota
	// FlagUnreachable is set by the allocator and by sweep's re-arm step;
	// cleared by the mark phase the moment something traces the slot.
	FlagUnreachable
	// FlagInRootSet mirrors membership in the explicit root set.
	FlagInRootSet
	// FlagIsBeingDestroyed is set for the duration of two-phase destruction.
	FlagIsBeingDestroyed
	// FlagIsDestroyed is set once a destructor has run to completion.
	FlagIsDestroyed
)

var _ rtypes.FlagsEnum = Flags(0)

// RequiredMagic is the sentinel every live header carries. A header whose
// Magic doesn't match this value is either uninitialized memory or a wild
// pointer and must be treated as invalid, never dereferenced further.
const RequiredMagic uint16 = 0xC0FE

// Header is the 16-byte (on 64-bit targets) prefix of every pooled slot.
type Header struct {
	NextFree   *Header
	Generation uint16
	Magic      uint16
	Flags      Flags
}

// IsAlive reports the IsValid contract from the object layer without needing
// the full object package: allocated, and not mid-teardown or torn down.
func (h *Header) IsAlive() bool {
	return rtypes.HasAny(h.Flags, FlagAllocated) &&
		!rtypes.HasAny(h.Flags, FlagIsBeingDestroyed|FlagIsDestroyed)
}

// IsDying reports whether this header's object has begun or finished
// destruction - the condition under which references to it get auto-nulled.
func (h *Header) IsDying() bool {
	return rtypes.HasAny(h.Flags, FlagIsBeingDestroyed|FlagIsDestroyed)
}
