package pool

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateGrowsFromEmpty(t *testing.T) {
	p := New(16)
	payload := p.Allocate()
	require.NotNil(t, payload)

	h := HeaderFor(payload)
	require.NotNil(t, h)
	assert.True(t, h.IsAlive())
	assert.Equal(t, RequiredMagic, h.Magic)
}

func TestAllocateBumpsGenerationOnReuse(t *testing.T) {
	p := New(8)
	first := p.Allocate()
	gen1 := HeaderFor(first).Generation

	p.Free(first)
	second := p.Allocate()
	require.Equal(t, first, second, "freelist should hand the same slot straight back")

	gen2 := HeaderFor(second).Generation
	assert.NotEqual(t, gen1, gen2, "generation must change across free+reallocate")
}

func TestFreeClearsAllocatedFlag(t *testing.T) {
	p := New(8)
	payload := p.Allocate()
	h := HeaderFor(payload)
	require.True(t, h.IsAlive())

	p.Free(payload)
	assert.False(t, h.IsAlive())
}

func TestHeaderForRejectsBadMagic(t *testing.T) {
	var garbage [64]byte
	fake := unsafe.Pointer(&garbage[headerSize])
	assert.Nil(t, HeaderFor(fake))
}

func TestHeaderForRejectsNil(t *testing.T) {
	assert.Nil(t, HeaderFor(nil))
}

func TestPoolGrowsAcrossMultipleBlocks(t *testing.T) {
	p := New(4)
	seen := map[unsafe.Pointer]bool{}
	for i := 0; i < slotsPerBlock+10; i++ {
		payload := p.Allocate()
		require.NotNil(t, payload)
		assert.False(t, seen[payload], "allocate must never hand out a live slot twice")
		seen[payload] = true
	}
	assert.Equal(t, 2, p.BlockCount())
}

func TestContainsAddress(t *testing.T) {
	p := New(8)
	payload := p.Allocate()
	assert.True(t, p.ContainsAddress(payload))

	other := New(8)
	assert.False(t, other.ContainsAddress(payload))
}

func TestSlotAtMatchesAllocatedPointer(t *testing.T) {
	p := New(8)
	payload := p.Allocate()
	found := false
	for b := 0; b < p.BlockCount(); b++ {
		for s := 0; s < p.SlotsPerBlock(); s++ {
			if p.SlotAt(b, s) == payload {
				found = true
			}
		}
	}
	assert.True(t, found)
}
