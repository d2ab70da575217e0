// Package rtypes declares fixed-width primitive aliases and the
// flagged-enumeration helpers. Go already has fixed-width integer types, so
// the aliases only give them short names; the other packages of this
// module use the flag helpers and spell the integer types out directly.
package rtypes

type (
	U8  = uint8
	U16 = uint16
	U32 = uint32
	U64 = uint64

	I8  = int8
	I16 = int16
	I32 = int32
	I64 = int64

	R32 = float32
	R64 = float64

	// USize is the pointer-sized unsigned integer.
	USize = uintptr
)
