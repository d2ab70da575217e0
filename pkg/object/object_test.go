package object

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"objsys/pkg/pool"
	"objsys/pkg/reflect"
)

type widget struct {
	Object
	Count int32
}

func widgetClass(hooks reflect.Hooks) *reflect.Class {
	var canonical widget
	return reflect.NewClass("Widget", RootClass, unsafe.Sizeof(canonical), nil,
		func(payload unsafe.Pointer) { *(*widget)(payload) = widget{} }, hooks, unsafe.Pointer(&canonical))
}

func newWidget(t *testing.T, hooks reflect.Hooks) (*pool.Registry, *widget) {
	t.Helper()
	registry := pool.NewRegistry()
	class := widgetClass(hooks)
	o := New(registry, class)
	require.NotNil(t, o)
	return registry, (*widget)(unsafe.Pointer(o))
}

func TestNewObjectAssignsClass(t *testing.T) {
	_, w := newWidget(t, reflect.Hooks{})
	assert.Equal(t, "Widget", w.Class().Name())
	assert.True(t, IsValid(&w.Object))
}

func TestIsValidRejectsNil(t *testing.T) {
	assert.False(t, IsValid(nil))
}

func TestGenerationChangesAcrossFreeAndReallocate(t *testing.T) {
	registry, w := newWidget(t, reflect.Hooks{})
	gen1 := w.GetGeneration()

	h := pool.HeaderFor(unsafe.Pointer(w))
	owningPool := registry.FindContaining(unsafe.Pointer(w))
	require.NotNil(t, owningPool)
	owningPool.Free(unsafe.Pointer(w))
	assert.False(t, h.IsAlive())

	reused := New(registry, w.Class())
	require.NotNil(t, reused)
	assert.NotEqual(t, gen1, reused.GetGeneration())
}

func TestDestroySinglePhase(t *testing.T) {
	_, w := newWidget(t, reflect.Hooks{})
	assert.False(t, w.IsDestroyed())

	w.Destroy()
	assert.True(t, w.IsDestroyed())
	assert.False(t, w.IsBeingDestroyed())
}

func TestDestroyTwoPhase(t *testing.T) {
	finished := false
	var beginCalls, endCalls int
	hooks := reflect.Hooks{
		OnBeginDestroy:    func(unsafe.Pointer) { beginCalls++ },
		IsDestroyFinished: func(unsafe.Pointer) bool { return finished },
		OnEndDestroy:      func(unsafe.Pointer) { endCalls++ },
	}
	_, w := newWidget(t, hooks)

	w.Destroy()
	assert.Equal(t, 1, beginCalls)
	assert.True(t, w.IsBeingDestroyed())
	assert.False(t, w.IsDestroyed())
	assert.Equal(t, 0, endCalls)

	finished = true
	assert.True(t, w.TryCompleteDestruction())
	assert.True(t, w.IsDestroyed())
	assert.False(t, w.IsBeingDestroyed())
	assert.Equal(t, 1, endCalls)
}

func TestRootSetAddRemove(t *testing.T) {
	registry, w := newWidget(t, reflect.Hooks{})
	w.AddToRootSet()

	h := pool.HeaderFor(unsafe.Pointer(w))
	require.NotNil(t, h)
	assert.Contains(t, RootSet(registry), &w.Object)

	w.RemoveFromRootSet()
	assert.NotContains(t, RootSet(registry), &w.Object)
}

func TestRootSetIsScopedPerRegistry(t *testing.T) {
	registryA, w := newWidget(t, reflect.Hooks{})
	w.AddToRootSet()

	registryB := pool.NewRegistry()
	assert.NotContains(t, RootSet(registryB), &w.Object)
	assert.Contains(t, RootSet(registryA), &w.Object)
}
