// Package reflect is the runtime's reflection/type-metadata registry: field
// descriptors that record what fields a type has, their kinds and byte
// offsets, and a Class registry the collector walks to discover outgoing
// references. Grounded on chrissinclair/object_system's Public/Object/
// ObjectField.h and Private/ObjectField.cpp, extended with the Enum,
// Struct and tag-bag variants spec.md asks for that the C++ prior art
// doesn't have.
//
// No field descriptor owns the memory of the object it describes -
// descriptors are owned by the containing Class, and UntypedPtr/the
// typed accessors below are pure offset arithmetic over a caller-supplied
// base pointer.
package reflect

import (
	"strings"
	"unsafe"
)

// Kind tags the variant a Field descriptor carries.
type Kind int

const (
	KindBool Kind = iota
	KindInt32
	KindInt64
	KindReal32
	KindReal64
	KindString
	KindEnum
	KindObject
	KindStruct
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "Bool"
	case KindInt32:
		return "Int32"
	case KindInt64:
		return "Int64"
	case KindReal32:
		return "Real32"
	case KindReal64:
		return "Real64"
	case KindString:
		return "String"
	case KindEnum:
		return "Enum"
	case KindObject:
		return "Object"
	case KindStruct:
		return "Struct"
	case KindArray:
		return "Array"
	default:
		return "Unknown"
	}
}

// ObjectArray is the concrete storage type for an Array field whose element
// kind is Object: a dynamic sequence of raw object pointers. The gc package
// casts each slot to the appropriate *object.Object at trace time.
type ObjectArray = []unsafe.Pointer

// StructArray is the concrete storage type for an Array field whose element
// kind is Struct: elements packed at Element.Class.Size() stride, matching
// the original's Array<u8> + manual stride indexing for array-of-struct
// fields - except the backing storage is words of unsafe.Pointer, not plain
// bytes. make([]byte, n) is allocated "no pointers" and Go's collector never
// scans inside it, so a struct element carrying a String, Object or nested
// Array field would have its pointer/string-header data invisible to the
// host GC, which could then reclaim it out from under a still-reachable
// struct - the same hazard pool.block is declared []unsafe.Pointer to avoid.
// Byte-level offsets still address into it the same way via
// StructArrayElementBase; only the declared element type changes.
type StructArray = []unsafe.Pointer

var structArrayWordSize = unsafe.Sizeof(unsafe.Pointer(nil))

// NewStructArray allocates a StructArray able to hold count elements of the
// given byte stride, rounded up to whole words.
func NewStructArray(count int, elementSize uintptr) StructArray {
	totalBytes := elementSize * uintptr(count)
	numWords := (totalBytes + structArrayWordSize - 1) / structArrayWordSize
	return make(StructArray, numWords)
}

// StructArrayLen returns the number of elementSize-strided elements arr can
// hold - the word-scanned equivalent of len(byteBuffer)/stride.
func StructArrayLen(arr StructArray, elementSize uintptr) int {
	if elementSize == 0 || len(arr) == 0 {
		return 0
	}
	totalBytes := uintptr(len(arr)) * structArrayWordSize
	return int(totalBytes / elementSize)
}

// StructArrayElementBase returns the byte-offset base pointer for the
// element at index within arr, strided at elementSize bytes per element.
// Addressing is still byte-level; only the backing storage's declared
// element type changed to keep it host-GC-scanned.
func StructArrayElementBase(arr StructArray, index int, elementSize uintptr) unsafe.Pointer {
	base := uintptr(unsafe.Pointer(&arr[0]))
	return unsafe.Pointer(base + uintptr(index)*elementSize)
}

// Field is a tagged field descriptor: kind, byte offset from the containing
// aggregate's base, a name, and two optional tag bags parsed from a flat
// list of "key=value" / "key" strings.
type Field struct {
	Kind   Kind
	Offset uintptr
	Name   string

	// Enum carries the enum metadata for KindEnum fields.
	Enum *Enum
	// Class carries the declared Class for KindObject and KindStruct fields.
	Class *Class
	// Element describes the element kind for KindArray fields.
	Element *Field

	flags  map[string]struct{}
	params map[string]string
}

// ParseTags splits a flat tag list into the flag set and parameter map the
// field descriptor model exposes. The grammar is simple, single-pass, and
// has no escaping: "key=value" is a parameter, bare "key" is a flag.
func ParseTags(tags []string) (flags map[string]struct{}, params map[string]string) {
	flags = make(map[string]struct{})
	params = make(map[string]string)
	for _, tag := range tags {
		if idx := strings.IndexByte(tag, '='); idx >= 0 {
			params[tag[:idx]] = tag[idx+1:]
		} else {
			flags[tag] = struct{}{}
		}
	}
	return flags, params
}

// NewField constructs a primitive or bare field descriptor.
func NewField(kind Kind, offset uintptr, name string, tags ...string) *Field {
	flags, params := ParseTags(tags)
	return &Field{Kind: kind, Offset: offset, Name: name, flags: flags, params: params}
}

// NewEnumField constructs an enum-typed field descriptor.
func NewEnumField(offset uintptr, name string, enum *Enum, tags ...string) *Field {
	f := NewField(KindEnum, offset, name, tags...)
	f.Enum = enum
	return f
}

// NewObjectField constructs an object-reference field descriptor.
func NewObjectField(offset uintptr, name string, class *Class, tags ...string) *Field {
	f := NewField(KindObject, offset, name, tags...)
	f.Class = class
	return f
}

// NewStructField constructs a nested value-aggregate field descriptor.
func NewStructField(offset uintptr, name string, class *Class, tags ...string) *Field {
	f := NewField(KindStruct, offset, name, tags...)
	f.Class = class
	return f
}

// NewArrayField constructs a dynamic-sequence field descriptor, owning a
// nested field descriptor describing the element kind.
func NewArrayField(offset uintptr, name string, element *Field, tags ...string) *Field {
	f := NewField(KindArray, offset, name, tags...)
	f.Element = element
	return f
}

// OffsetOf computes a field's byte offset from the aggregate's base address.
// The registration helper calls this once per field, at StaticClass build
// time, the Go equivalent of EXPOSE_FIELD's FindOffsetOf(this, &this->field).
func OffsetOf(base, field unsafe.Pointer) uintptr {
	return uintptr(field) - uintptr(base)
}

// UntypedPtr returns base+Offset, unadorned. Typed accessors below cast it.
func (f *Field) UntypedPtr(base unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(base) + f.Offset)
}

func (f *Field) BoolPtr(base unsafe.Pointer) *bool       { return (*bool)(f.UntypedPtr(base)) }
func (f *Field) Int32Ptr(base unsafe.Pointer) *int32     { return (*int32)(f.UntypedPtr(base)) }
func (f *Field) Int64Ptr(base unsafe.Pointer) *int64     { return (*int64)(f.UntypedPtr(base)) }
func (f *Field) Real32Ptr(base unsafe.Pointer) *float32  { return (*float32)(f.UntypedPtr(base)) }
func (f *Field) Real64Ptr(base unsafe.Pointer) *float64  { return (*float64)(f.UntypedPtr(base)) }
func (f *Field) StringPtr(base unsafe.Pointer) *string   { return (*string)(f.UntypedPtr(base)) }
func (f *Field) EnumInt32Ptr(base unsafe.Pointer) *int32 { return (*int32)(f.UntypedPtr(base)) }

// ObjectPtr returns the pointer-to-object-pointer slot for an object-typed
// field, so the collector can both read and auto-null it in place.
func (f *Field) ObjectPtr(base unsafe.Pointer) *unsafe.Pointer {
	return (*unsafe.Pointer)(f.UntypedPtr(base))
}

// StructBase returns the nested aggregate's base pointer for a struct-typed
// field - the struct is stored inline, not behind a pointer.
func (f *Field) StructBase(base unsafe.Pointer) unsafe.Pointer {
	return f.UntypedPtr(base)
}

// ObjectArrayPtr returns the *ObjectArray slot for an Array-of-Object field.
func (f *Field) ObjectArrayPtr(base unsafe.Pointer) *ObjectArray {
	return (*ObjectArray)(f.UntypedPtr(base))
}

// StructArrayPtr returns the *StructArray slot for an Array-of-Struct field.
func (f *Field) StructArrayPtr(base unsafe.Pointer) *StructArray {
	return (*StructArray)(f.UntypedPtr(base))
}

// HasFlag reports whether the bare tag name is present.
func (f *Field) HasFlag(name string) bool {
	_, ok := f.flags[name]
	return ok
}

// HasParam reports whether the key=value tag is present.
func (f *Field) HasParam(name string) bool {
	_, ok := f.params[name]
	return ok
}

// GetParam returns the tag's value, or "" when absent.
func (f *Field) GetParam(name string) string {
	return f.params[name]
}

// GetFlags returns every bare flag tag name.
func (f *Field) GetFlags() []string {
	out := make([]string, 0, len(f.flags))
	for name := range f.flags {
		out = append(out, name)
	}
	return out
}

// GetParams returns a copy of the parameter tag bag.
func (f *Field) GetParams() map[string]string {
	out := make(map[string]string, len(f.params))
	for k, v := range f.params {
		out[k] = v
	}
	return out
}
