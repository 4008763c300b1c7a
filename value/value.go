// Package value implements the XML-RPC value tree: a tagged variant that
// represents the six scalar types, arrays, and structs defined by the
// XML-RPC spec (http://xmlrpc.com/spec), plus the optional nil extension.
package value

import (
	"errors"
	"fmt"
)

// Kind is the coarse shape of a Value: scalar, array, or struct.
type Kind int

const (
	KindScalar Kind = iota
	KindArray
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	default:
		return "unknown"
	}
}

// Tag is the XML-RPC wire type name. For array and struct values, Tag is
// TagArray/TagStruct respectively; for scalars it names the specific
// variant. TagAny only ever appears in a declared signature, never on a
// live Value.
type Tag int

const (
	TagInt Tag = iota
	TagBoolean
	TagString
	TagDouble
	TagDateTime
	TagBase64
	TagNil
	TagArray
	TagStruct
	TagAny
)

var tagNames = map[Tag]string{
	TagInt:      "int",
	TagBoolean:  "boolean",
	TagString:   "string",
	TagDouble:   "double",
	TagDateTime: "dateTime.iso8601",
	TagBase64:   "base64",
	TagNil:      "nil",
	TagArray:    "array",
	TagStruct:   "struct",
	TagAny:      "any",
}

func (t Tag) String() string {
	if n, ok := tagNames[t]; ok {
		return n
	}
	return "unknown"
}

// ParseTag maps a wire/signature type name to a Tag. "i4" is the alias for
// "int" that the XML-RPC spec carries for historical reasons.
func ParseTag(name string) (Tag, bool) {
	if name == "i4" {
		return TagInt, true
	}
	for t, n := range tagNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

var (
	// ErrKindMismatch is returned by a scalar accessor called on a Value of
	// the wrong Kind or Tag.
	ErrKindMismatch = errors.New("value: kind/tag mismatch")
	// ErrOutOfRange is returned by ArrayAt when the index is out of bounds.
	ErrOutOfRange = errors.New("value: index out of range")
)

// Value is an XML-RPC value: exactly one of a scalar, an array, or a
// struct. The zero Value is not valid; use one of the New* constructors.
type Value struct {
	kind Kind
	tag  Tag

	i        int32
	b        bool
	s        string // also carries dateTime.iso8601's opaque text
	d        float64
	bin      []byte
	isNil    bool
	elements []*Value

	keys   []string
	fields map[string]*Value
}

// NewInt constructs an int scalar.
func NewInt(v int32) *Value { return &Value{kind: KindScalar, tag: TagInt, i: v} }

// NewBool constructs a boolean scalar.
func NewBool(v bool) *Value { return &Value{kind: KindScalar, tag: TagBoolean, b: v} }

// NewString constructs a string scalar. The payload is stored verbatim;
// no coercion is performed.
func NewString(v string) *Value { return &Value{kind: KindScalar, tag: TagString, s: v} }

// NewDouble constructs a double scalar.
func NewDouble(v float64) *Value { return &Value{kind: KindScalar, tag: TagDouble, d: v} }

// NewDateTime constructs a dateTime.iso8601 scalar. The value is an opaque
// string in the format YYYYMMDDTHH:MM:SS; no parsing is attempted.
func NewDateTime(v string) *Value { return &Value{kind: KindScalar, tag: TagDateTime, s: v} }

// NewBase64 constructs a base64 scalar. The payload is the decoded octets;
// base64 encoding happens only at the wire boundary.
func NewBase64(v []byte) *Value {
	cp := make([]byte, len(v))
	copy(cp, v)
	return &Value{kind: KindScalar, tag: TagBase64, bin: cp}
}

// NewNil constructs the optional nil scalar (NIL extension).
func NewNil() *Value { return &Value{kind: KindScalar, tag: TagNil, isNil: true} }

// NewArray constructs an array from the given elements, in order.
func NewArray(elements ...*Value) *Value {
	cp := make([]*Value, len(elements))
	copy(cp, elements)
	return &Value{kind: KindArray, elements: cp}
}

// NewStruct constructs an empty struct. Use SetMember to populate it;
// insertion order is preserved.
func NewStruct() *Value {
	return &Value{kind: KindStruct, fields: make(map[string]*Value)}
}

// Kind reports whether v is a scalar, array, or struct.
func (v *Value) Kind() Kind { return v.kind }

// Tag reports the scalar type tag. It is only meaningful when Kind() ==
// KindScalar; for composites it returns TagArray/TagStruct for convenience
// in signature comparisons.
func (v *Value) Tag() Tag {
	switch v.kind {
	case KindArray:
		return TagArray
	case KindStruct:
		return TagStruct
	default:
		return v.tag
	}
}

func (v *Value) scalar(want Tag) error {
	if v.kind != KindScalar || v.tag != want {
		return fmt.Errorf("%w: want %s, have %s", ErrKindMismatch, want, v.Tag())
	}
	return nil
}

// Int returns the payload of an int scalar.
func (v *Value) Int() (int32, error) {
	if err := v.scalar(TagInt); err != nil {
		return 0, err
	}
	return v.i, nil
}

// Bool returns the payload of a boolean scalar.
func (v *Value) Bool() (bool, error) {
	if err := v.scalar(TagBoolean); err != nil {
		return false, err
	}
	return v.b, nil
}

// Str returns the payload of a string scalar.
func (v *Value) Str() (string, error) {
	if err := v.scalar(TagString); err != nil {
		return "", err
	}
	return v.s, nil
}

// Double returns the payload of a double scalar.
func (v *Value) Double() (float64, error) {
	if err := v.scalar(TagDouble); err != nil {
		return 0, err
	}
	return v.d, nil
}

// DateTime returns the opaque payload of a dateTime.iso8601 scalar.
func (v *Value) DateTime() (string, error) {
	if err := v.scalar(TagDateTime); err != nil {
		return "", err
	}
	return v.s, nil
}

// Base64 returns the decoded payload of a base64 scalar.
func (v *Value) Base64() ([]byte, error) {
	if err := v.scalar(TagBase64); err != nil {
		return nil, err
	}
	cp := make([]byte, len(v.bin))
	copy(cp, v.bin)
	return cp, nil
}

// IsNil reports whether v is the nil scalar.
func (v *Value) IsNil() bool { return v.kind == KindScalar && v.tag == TagNil }

// ArrayLen returns the number of elements in an array. It is 0 for any
// value that is not an array.
func (v *Value) ArrayLen() int {
	if v.kind != KindArray {
		return 0
	}
	return len(v.elements)
}

// ArrayAt returns the i-th element of an array.
func (v *Value) ArrayAt(i int) (*Value, error) {
	if v.kind != KindArray {
		return nil, fmt.Errorf("%w: not an array", ErrKindMismatch)
	}
	if i < 0 || i >= len(v.elements) {
		return nil, ErrOutOfRange
	}
	return v.elements[i], nil
}

// Elements returns the array's elements in order. The caller must not
// mutate the returned slice.
func (v *Value) Elements() []*Value {
	if v.kind != KindArray {
		return nil
	}
	return v.elements
}

// SetMember inserts or replaces a struct member, preserving the position
// of the first insertion for a given name.
func (v *Value) SetMember(name string, val *Value) {
	if v.kind != KindStruct {
		return
	}
	if _, exists := v.fields[name]; !exists {
		v.keys = append(v.keys, name)
	}
	v.fields[name] = val
}

// StructGet looks up a struct member by name.
func (v *Value) StructGet(name string) (*Value, bool) {
	if v.kind != KindStruct {
		return nil, false
	}
	val, ok := v.fields[name]
	return val, ok
}

// StructKeys returns struct member names in insertion order.
func (v *Value) StructKeys() []string {
	if v.kind != KindStruct {
		return nil
	}
	cp := make([]string, len(v.keys))
	copy(cp, v.keys)
	return cp
}

// Equal compares two value trees for structural equality, ignoring struct
// key ordering (used by round-trip tests; see P1 in SPEC_FULL.md).
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case KindScalar:
		if a.Tag() != b.Tag() {
			return false
		}
		switch a.Tag() {
		case TagInt:
			return a.i == b.i
		case TagBoolean:
			return a.b == b.b
		case TagString, TagDateTime:
			return a.s == b.s
		case TagDouble:
			return a.d == b.d
		case TagBase64:
			return string(a.bin) == string(b.bin)
		case TagNil:
			return true
		}
		return false
	case KindArray:
		if len(a.elements) != len(b.elements) {
			return false
		}
		for i := range a.elements {
			if !Equal(a.elements[i], b.elements[i]) {
				return false
			}
		}
		return true
	case KindStruct:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for _, k := range a.keys {
			bv, ok := b.StructGet(k)
			if !ok || !Equal(a.fields[k], bv) {
				return false
			}
		}
		return true
	}
	return false
}
