package pool

import "unsafe"

// SizeClassFunc maps a requested payload size to the size class a pool
// services. The default is the identity function - one pool per exact
// size, matching ObjectPool::GetPoolSizeForObjectSize in the original
// implementation. A rounding policy (e.g. power-of-two buckets) may be
// substituted so long as it never causes two different-sized allocations
// to alias the same slot; that invariant is the caller's responsibility.
type SizeClassFunc func(requestedSize uint32) uint32

func identitySizeClass(requestedSize uint32) uint32 { return requestedSize }

// Registry is a set of pools, one per size class. It is the Go analogue of
// ObjectPool::GetPools(): a single place application code allocates
// through, regardless of the object's payload size. Each runtime Context
// builds its own Registry, so several can exist in one process.
type Registry struct {
	pools     map[uint32]*Pool
	order     []uint32
	sizeClass SizeClassFunc
}

// NewRegistry creates an empty pool registry using the identity size-class
// policy.
func NewRegistry() *Registry {
	return &Registry{
		pools:     make(map[uint32]*Pool),
		sizeClass: identitySizeClass,
	}
}

// SetSizeClassFunc overrides the size-class policy. Must be called before
// any allocation through the registry.
func (r *Registry) SetSizeClassFunc(fn SizeClassFunc) {
	if fn == nil {
		fn = identitySizeClass
	}
	r.sizeClass = fn
}

// PoolFor returns the pool servicing requestedSize, creating it on first
// use. A zero-size request is treated as one byte to avoid a degenerate
// pool.
func (r *Registry) PoolFor(requestedSize uint32) *Pool {
	if requestedSize == 0 {
		requestedSize = 1
	}
	class := r.sizeClass(requestedSize)
	if p, ok := r.pools[class]; ok {
		return p
	}
	p := New(class)
	r.pools[class] = p
	r.order = append(r.order, class)
	return p
}

// Allocate carves a new slot for an object of the given payload size out of
// the appropriate pool.
func (r *Registry) Allocate(requestedSize uint32) unsafe.Pointer {
	return r.PoolFor(requestedSize).Allocate()
}

// Pools returns every pool in registration order, for sweep iteration.
func (r *Registry) Pools() []*Pool {
	result := make([]*Pool, len(r.order))
	for i, class := range r.order {
		result[i] = r.pools[class]
	}
	return result
}

// FindContaining returns the pool whose blocks contain addr, or nil.
func (r *Registry) FindContaining(addr unsafe.Pointer) *Pool {
	for _, class := range r.order {
		if p := r.pools[class]; p.ContainsAddress(addr) {
			return p
		}
	}
	return nil
}
