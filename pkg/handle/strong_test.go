package handle

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"objsys/pkg/object"
	"objsys/pkg/pool"
)

func TestStrongHandleRetainsAndValidates(t *testing.T) {
	registry, g := newGadget(t)
	g.Value = 3

	s := NewStrong(registry, g)
	require.True(t, s.IsValid())
	assert.Equal(t, int64(3), s.Get().Value)
}

func TestStrongHandleRegistryIsRootPinned(t *testing.T) {
	registry, g := newGadget(t)
	_ = NewStrong(registry, g)

	mgr := staticStrongRegistry(registry)
	h := pool.HeaderFor(unsafe.Pointer(&mgr.Object))
	require.NotNil(t, h)
	assert.Contains(t, object.RootSet(registry), &mgr.Object)
}

func TestStrongHandleReleaseUnregisters(t *testing.T) {
	registry, g := newGadget(t)
	s := NewStrong(registry, g)

	mgr := staticStrongRegistry(registry)
	before := len(mgr.Objects)

	s.Release(registry)
	assert.Nil(t, s.Get())

	after := 0
	for _, o := range mgr.Objects {
		if o != nil {
			after++
		}
	}
	assert.Less(t, after, before)
}

func TestStrongHandleBecomesInvalidAfterDestroy(t *testing.T) {
	_, g := newGadget(t)
	registry := pool.NewRegistry()
	s := NewStrong(registry, g)

	g.Destroy()
	assert.False(t, s.IsValid())
	assert.Nil(t, s.Get())
}

func TestStrongHandleRegistrySlotReuse(t *testing.T) {
	registry, g1 := newGadget(t)
	s1 := NewStrong(registry, g1)
	firstIndex := s1.index
	s1.Release(registry)

	_, g2 := newGadget(t)
	s2 := NewStrong(registry, g2)
	assert.True(t, s2.IsValid())
	assert.Equal(t, firstIndex, s2.index)
}
