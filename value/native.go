package value

import (
	"fmt"
	"regexp"
)

// NativeField is one member of a NativeStruct, preserving wire order —
// Go maps don't, and multicall result order is observable (P4 in
// SPEC_FULL.md), so ToNative never hands back a bare map.
type NativeField struct {
	Name  string
	Value any
}

// NativeStruct is the native-value convention's rendering of an XML-RPC
// struct: an ordered list of fields rather than a map.
type NativeStruct []NativeField

// Get looks up a field by name, first match wins.
func (s NativeStruct) Get(name string) (any, bool) {
	for _, f := range s {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// NativeEncodingOptions tunes FromNative's guesses when a Go value doesn't
// carry enough type information on its own (e.g. a bare string).
type NativeEncodingOptions struct {
	// DateTimeStrings, when true, makes FromNative tag strings that look
	// like "YYYYMMDDTHH:MM:SS" as dateTime.iso8601 instead of string.
	DateTimeStrings bool
}

var iso8601Like = regexp.MustCompile(`^\d{8}T\d{2}:\d{2}:\d{2}$`)

// ToNative unwraps a Value into a native Go value for the nativeValue and
// epi calling conventions: scalars unwrap to their Go type, arrays become
// []any, structs become NativeStruct.
func ToNative(v *Value) (any, error) {
	switch v.Kind() {
	case KindScalar:
		switch v.Tag() {
		case TagInt:
			return v.i, nil
		case TagBoolean:
			return v.b, nil
		case TagString, TagDateTime:
			return v.s, nil
		case TagDouble:
			return v.d, nil
		case TagBase64:
			cp := make([]byte, len(v.bin))
			copy(cp, v.bin)
			return cp, nil
		case TagNil:
			return nil, nil
		}
		return nil, fmt.Errorf("%w: unrecognized scalar tag", ErrKindMismatch)
	case KindArray:
		out := make([]any, len(v.elements))
		for i, e := range v.elements {
			n, err := ToNative(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case KindStruct:
		out := make(NativeStruct, 0, len(v.keys))
		for _, k := range v.keys {
			n, err := ToNative(v.fields[k])
			if err != nil {
				return nil, err
			}
			out = append(out, NativeField{Name: k, Value: n})
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unrecognized kind", ErrKindMismatch)
}

// FromNative encodes a native Go value back into the Value tree, the
// inverse of ToNative, used to wrap a nativeValue/epi handler's return.
func FromNative(n any, opts NativeEncodingOptions) (*Value, error) {
	switch t := n.(type) {
	case nil:
		return NewNil(), nil
	case *Value:
		return t, nil
	case int:
		return NewInt(int32(t)), nil
	case int32:
		return NewInt(t), nil
	case int64:
		return NewInt(int32(t)), nil
	case bool:
		return NewBool(t), nil
	case float32:
		return NewDouble(float64(t)), nil
	case float64:
		return NewDouble(t), nil
	case []byte:
		return NewBase64(t), nil
	case string:
		if opts.DateTimeStrings && iso8601Like.MatchString(t) {
			return NewDateTime(t), nil
		}
		return NewString(t), nil
	case []any:
		elems := make([]*Value, len(t))
		for i, e := range t {
			v, err := FromNative(e, opts)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return NewArray(elems...), nil
	case NativeStruct:
		s := NewStruct()
		for _, f := range t {
			v, err := FromNative(f.Value, opts)
			if err != nil {
				return nil, err
			}
			s.SetMember(f.Name, v)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("value: cannot encode native value of type %T", n)
	}
}
