package reflect

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID     int32
	Name   string
	Bitset int32
}

func TestParseTags(t *testing.T) {
	flags, params := ParseTags([]string{"transient", "default=0", "range=1-10"})
	_, hasTransient := flags["transient"]
	assert.True(t, hasTransient)
	assert.Equal(t, "0", params["default"])
	assert.Equal(t, "1-10", params["range"])
}

func TestPrimitiveFieldAccessors(t *testing.T) {
	var s sample
	base := unsafe.Pointer(&s)

	idField := NewField(KindInt32, OffsetOf(base, unsafe.Pointer(&s.ID)), "ID")
	*idField.Int32Ptr(base) = 42
	assert.Equal(t, int32(42), s.ID)

	nameField := NewField(KindString, OffsetOf(base, unsafe.Pointer(&s.Name)), "Name")
	*nameField.StringPtr(base) = "hello"
	assert.Equal(t, "hello", s.Name)
}

func TestEnumFieldAccessor(t *testing.T) {
	var s sample
	base := unsafe.Pointer(&s)
	enum := NewEnum("Bits", true, EnumEntry{Value: 1, Name: "A"})
	f := NewEnumField(OffsetOf(base, unsafe.Pointer(&s.Bitset)), "Bitset", enum)
	*f.EnumInt32Ptr(base) = 1
	assert.Equal(t, int32(1), s.Bitset)
	assert.Equal(t, "A", f.Enum.ToString(int64(*f.EnumInt32Ptr(base))))
}

func TestFieldTagHelpers(t *testing.T) {
	f := NewField(KindBool, 0, "Flag", "required", "default=true")
	assert.True(t, f.HasFlag("required"))
	assert.True(t, f.HasParam("default"))
	assert.Equal(t, "true", f.GetParam("default"))
	assert.Equal(t, "", f.GetParam("missing"))
}

func TestNewClassRequiresEnumMetadata(t *testing.T) {
	var s sample
	base := unsafe.Pointer(&s)
	badField := NewField(KindEnum, OffsetOf(base, unsafe.Pointer(&s.Bitset)), "Bitset")

	defer func() {
		r := recover()
		require.NotNil(t, r, "NewClass must panic on a KindEnum field missing Enum metadata")
	}()
	NewClass("Bad", nil, unsafe.Sizeof(s), []*Field{badField}, func(unsafe.Pointer) {}, Hooks{}, base)
}
