package reflect

import (
	"reflect"
	"strings"
	"sync"
)

// Enum is the metadata record for an enumeration exposed to the reflection
// system: its name, the parallel value/name arrays, and whether it's a
// flagged (bitset) enumeration.
type Enum struct {
	name    string
	values  []int64
	names   []string
	isFlags bool
}

// EnumEntry is one enumerator: its integer value and its display name.
type EnumEntry struct {
	Value int64
	Name  string
}

// NewEnum builds enum metadata from a name, the flags bit, and its
// enumerators in declaration order.
func NewEnum(name string, isFlags bool, entries ...EnumEntry) *Enum {
	e := &Enum{name: name, isFlags: isFlags}
	for _, entry := range entries {
		e.values = append(e.values, entry.Value)
		e.names = append(e.names, entry.Name)
	}
	return e
}

// Name returns the enum's display name.
func (e *Enum) Name() string { return e.name }

// Values returns the enumerator values in declaration order.
func (e *Enum) Values() []int64 { return append([]int64(nil), e.values...) }

// Enumerators returns the enumerator names in declaration order.
func (e *Enum) Enumerators() []string { return append([]string(nil), e.names...) }

// IsEnumFlags reports whether this enum's values are meant to be combined
// as a bitset.
func (e *Enum) IsEnumFlags() bool { return e.isFlags }

// ToString translates a value to its enumerator name, or "" if unknown.
func (e *Enum) ToString(value int64) string {
	for i, v := range e.values {
		if v == value {
			return e.names[i]
		}
	}
	return ""
}

// FromString translates an enumerator name to its value, case-insensitively.
// Returns -1 on a miss.
func (e *Enum) FromString(name string) int64 {
	for i, n := range e.names {
		if strings.EqualFold(n, name) {
			return e.values[i]
		}
	}
	return -1
}

var (
	enumMu       sync.Mutex
	byEnumGoType = map[reflect.Type]*Enum{}
)

// StaticEnum returns the stable Enum record for T, constructing it via build
// on first call and idempotently on every call thereafter - the enum
// counterpart to StaticClass[T], rounding out the three static accessors the
// source exposes (StaticClass<T>, StaticInstance<T>, StaticEnum<T>).
func StaticEnum[T any](build func() *Enum) *Enum {
	var zero T
	t := reflect.TypeOf(zero)

	enumMu.Lock()
	if e, ok := byEnumGoType[t]; ok {
		enumMu.Unlock()
		return e
	}
	enumMu.Unlock()

	e := build()

	enumMu.Lock()
	defer enumMu.Unlock()
	if existing, ok := byEnumGoType[t]; ok {
		return existing
	}
	byEnumGoType[t] = e
	return e
}
