package reflect

import (
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type base struct{ Value int32 }
type derived struct {
	base
	Extra int32
}

func baseClass() *Class {
	return StaticClass[base](func() *Class {
		var canonical base
		return NewClass("Base", nil, unsafe.Sizeof(canonical), nil,
			func(payload unsafe.Pointer) { *(*base)(payload) = base{} }, Hooks{}, unsafe.Pointer(&canonical))
	})
}

func derivedClass() *Class {
	return StaticClass[derived](func() *Class {
		var canonical derived
		return NewClass("Derived", baseClass(), unsafe.Sizeof(canonical), nil,
			func(payload unsafe.Pointer) { *(*derived)(payload) = derived{} }, Hooks{}, unsafe.Pointer(&canonical))
	})
}

func TestIsDerivedFrom(t *testing.T) {
	b, d := baseClass(), derivedClass()
	assert.True(t, d.IsDerivedFrom(b))
	assert.True(t, d.IsDerivedFrom(d))
	assert.False(t, b.IsDerivedFrom(d))
	assert.False(t, d.IsDerivedFrom(nil))
}

func TestGetDerivedClasses(t *testing.T) {
	b, d := baseClass(), derivedClass()
	derivedClasses := GetDerivedClasses(b)
	require.Contains(t, derivedClasses, d)
	assert.NotContains(t, derivedClasses, b)
}

func TestStaticClassIsIdempotent(t *testing.T) {
	c1 := baseClass()
	c2 := baseClass()
	assert.Same(t, c1, c2)
}

func TestStaticClassRecursiveParentBuildDoesNotDeadlock(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		derivedClass()
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StaticClass recursive build deadlocked")
	}
}

func TestClassHooksDefaults(t *testing.T) {
	var canonical base
	c := NewClass("NoHooks", nil, unsafe.Sizeof(canonical), nil,
		func(unsafe.Pointer) {}, Hooks{}, unsafe.Pointer(&canonical))

	assert.True(t, c.RunIsDestroyFinished(nil), "a class with no IsDestroyFinished hook finishes immediately")
	c.RunOnBeginDestroy(nil)
	c.RunOnEndDestroy(nil)
}

func TestClassHooksInvoked(t *testing.T) {
	var began, finished, ended bool
	var canonical base
	c := NewClass("Hooked", nil, unsafe.Sizeof(canonical), nil,
		func(unsafe.Pointer) {},
		Hooks{
			OnBeginDestroy:    func(unsafe.Pointer) { began = true },
			IsDestroyFinished: func(unsafe.Pointer) bool { finished = true; return true },
			OnEndDestroy:      func(unsafe.Pointer) { ended = true },
		},
		unsafe.Pointer(&canonical))

	c.RunOnBeginDestroy(nil)
	assert.True(t, c.RunIsDestroyFinished(nil))
	c.RunOnEndDestroy(nil)
	assert.True(t, began)
	assert.True(t, finished)
	assert.True(t, ended)
}
