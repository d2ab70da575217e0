package pool

import (
	"unsafe"

	"github.com/pkg/errors"
)

// slotsPerBlock is the number of slots carved out of each growth block.
// The original implementation hardcodes 128 with a "should be configurable"
// TODO; SizeClassFunc in registry.go is this module's answer for the one knob the
// spec does ask to be replaceable (pool-size-for-object-size), but block
// granularity stays fixed at 128 to match the source exactly.
const slotsPerBlock = 128

var headerSize = unsafe.Sizeof(Header{})
var wordSize = unsafe.Sizeof(unsafe.Pointer(nil))

// ErrAllocationFailed names the allocation-failure condition. Nothing in
// this package returns it: Allocate reports a failed allocation by
// returning nil, and object.New passes that nil on to its caller.
var ErrAllocationFailed = errors.New("pool: allocation failed")

// block is one growth chunk's backing storage. It is declared as words of
// unsafe.Pointer, not plain bytes: make([]byte, n) is allocated "no
// pointers" and Go's collector never scans inside it, so an Object, String
// or Array field written at an arbitrary offset via unsafe would be
// invisible to the host GC and its target could be reclaimed out from
// under a still-reachable object. A []unsafe.Pointer backing array carries
// the opposite bit - the runtime scans every word of it - which is what
// lets payload fields hold real Go pointers safely. Byte-level offsets
// still address into it the same way; only the declared element type
// changes.
type block []unsafe.Pointer

// Pool services a single payload-size class: header-prefixed slots of
// stride headerSize+elementSize, carved out of growable 128-slot blocks,
// linked through a singly-linked freelist.
type Pool struct {
	elementSize uint32
	blocks      []block
	freeList    *Header
}

// New creates an empty pool for the given element (payload) size. Blocks are
// allocated lazily, on first Allocate.
func New(elementSize uint32) *Pool {
	if elementSize == 0 {
		elementSize = 1
	}
	return &Pool{elementSize: elementSize}
}

// ElementSize returns the payload size this pool services.
func (p *Pool) ElementSize() uint32 { return p.elementSize }

func (p *Pool) stride() uintptr {
	return headerSize + uintptr(p.elementSize)
}

func (p *Pool) headerAt(b block, slot int) *Header {
	base := uintptr(unsafe.Pointer(&b[0]))
	return (*Header)(unsafe.Pointer(base + uintptr(slot)*p.stride()))
}

func (p *Pool) allocateBlock() {
	stride := p.stride()
	totalBytes := stride * slotsPerBlock
	numWords := (totalBytes + wordSize - 1) / wordSize
	b := make(block, numWords)
	for slot := 0; slot < slotsPerBlock; slot++ {
		h := p.headerAt(b, slot)
		h.Generation = 0
		h.Flags = 0
		h.Magic = RequiredMagic
		if slot < slotsPerBlock-1 {
			h.NextFree = p.headerAt(b, slot+1)
		} else {
			// Last slot of the new block chains into whatever was already
			// on the freelist, so blocks stitch together cleanly.
			h.NextFree = p.freeList
		}
	}
	p.freeList = p.headerAt(b, 0)
	p.blocks = append(p.blocks, b)
}

// Allocate pops the freelist head, bumps its generation, marks it Allocated
// and Unreachable, and returns the payload pointer (header+1). Returns nil
// if the pool could not grow.
//
// Unreachable is set here, not just by the collector: a freshly allocated
// object not yet attached to a root is collectable on the very next cycle.
// Callers must root (or otherwise reach) an object before collecting.
func (p *Pool) Allocate() unsafe.Pointer {
	if p.freeList == nil {
		p.allocateBlock()
		if p.freeList == nil {
			return nil
		}
	}

	h := p.freeList
	p.freeList = h.NextFree
	h.Generation++
	h.Flags |= FlagAllocated | FlagUnreachable
	h.NextFree = nil

	return unsafe.Pointer(uintptr(unsafe.Pointer(h)) + headerSize)
}

// Free returns a slot to the freelist and bumps its generation a second
// time, invalidating every weak handle that captured the allocation's
// generation. Called only by the collector, after destruction completes.
func (p *Pool) Free(payload unsafe.Pointer) {
	h := HeaderFor(payload)
	if h == nil {
		return
	}
	h.Generation++
	h.Flags &^= FlagAllocated | FlagUnreachable
	h.NextFree = p.freeList
	p.freeList = h
}

// ContainsAddress reports whether addr falls strictly within one of this
// pool's blocks.
func (p *Pool) ContainsAddress(addr unsafe.Pointer) bool {
	target := uintptr(addr)
	for _, b := range p.blocks {
		base := uintptr(unsafe.Pointer(&b[0]))
		end := base + uintptr(len(b))*wordSize
		if target > base && target < end {
			return true
		}
	}
	return false
}

// SlotAt returns the payload pointer for the given slot index within a
// block, for sweep iteration over every slot regardless of freelist state.
func (p *Pool) SlotAt(blockIndex, slot int) unsafe.Pointer {
	h := p.headerAt(p.blocks[blockIndex], slot)
	return unsafe.Pointer(uintptr(unsafe.Pointer(h)) + headerSize)
}

// BlockCount returns the number of growth blocks this pool has allocated.
func (p *Pool) BlockCount() int { return len(p.blocks) }

// SlotsPerBlock is the fixed number of slots carved out of each block.
func (p *Pool) SlotsPerBlock() int { return slotsPerBlock }

// Stride is the header+payload size stepped between slots in a block.
func (p *Pool) Stride() uintptr { return p.stride() }

// HeaderFor derives the header for a payload pointer and validates its
// magic. Returns nil when the magic doesn't match - the caller must treat
// that as a non-fatal, skip-and-warn condition (CorruptHeader), never
// dereference further.
func HeaderFor(payload unsafe.Pointer) *Header {
	if payload == nil {
		return nil
	}
	h := (*Header)(unsafe.Pointer(uintptr(payload) - headerSize))
	if h.Magic != RequiredMagic {
		return nil
	}
	return h
}
