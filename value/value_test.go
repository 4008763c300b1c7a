package value

import "testing"

func TestScalarAccessors(t *testing.T) {
	tests := []struct {
		name string
		v    *Value
		tag  Tag
	}{
		{"int", NewInt(42), TagInt},
		{"bool", NewBool(true), TagBoolean},
		{"string", NewString("hi"), TagString},
		{"double", NewDouble(3.5), TagDouble},
		{"dateTime", NewDateTime("20260803T10:00:00"), TagDateTime},
		{"base64", NewBase64([]byte("hi")), TagBase64},
		{"nil", NewNil(), TagNil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.Kind() != KindScalar {
				t.Fatalf("Kind() = %v, want scalar", tt.v.Kind())
			}
			if tt.v.Tag() != tt.tag {
				t.Fatalf("Tag() = %v, want %v", tt.v.Tag(), tt.tag)
			}
		})
	}
}

func TestScalarAccessorMismatch(t *testing.T) {
	v := NewInt(1)
	if _, err := v.Str(); err == nil {
		t.Fatal("Str() on an int scalar should fail")
	}
	if _, err := v.Bool(); err == nil {
		t.Fatal("Bool() on an int scalar should fail")
	}
}

func TestArrayAccessors(t *testing.T) {
	arr := NewArray(NewInt(1), NewInt(2), NewInt(3))
	if arr.ArrayLen() != 3 {
		t.Fatalf("ArrayLen() = %d, want 3", arr.ArrayLen())
	}
	v, err := arr.ArrayAt(1)
	if err != nil {
		t.Fatalf("ArrayAt(1) error: %v", err)
	}
	n, _ := v.Int()
	if n != 2 {
		t.Fatalf("ArrayAt(1) = %d, want 2", n)
	}
	if _, err := arr.ArrayAt(3); err != ErrOutOfRange {
		t.Fatalf("ArrayAt(3) err = %v, want ErrOutOfRange", err)
	}
	if _, err := arr.ArrayAt(-1); err != ErrOutOfRange {
		t.Fatalf("ArrayAt(-1) err = %v, want ErrOutOfRange", err)
	}
}

func TestStructOrderPreserved(t *testing.T) {
	s := NewStruct()
	s.SetMember("z", NewInt(1))
	s.SetMember("a", NewInt(2))
	s.SetMember("m", NewInt(3))
	want := []string{"z", "a", "m"}
	got := s.StructKeys()
	if len(got) != len(want) {
		t.Fatalf("StructKeys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("StructKeys()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestStructOverwriteKeepsPosition(t *testing.T) {
	s := NewStruct()
	s.SetMember("a", NewInt(1))
	s.SetMember("b", NewInt(2))
	s.SetMember("a", NewInt(99))
	got := s.StructKeys()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("StructKeys() = %v, want [a b]", got)
	}
	v, _ := s.StructGet("a")
	n, _ := v.Int()
	if n != 99 {
		t.Fatalf("StructGet(a) = %d, want 99", n)
	}
}

func TestEqualNormalizesStructOrder(t *testing.T) {
	a := NewStruct()
	a.SetMember("x", NewInt(1))
	a.SetMember("y", NewInt(2))

	b := NewStruct()
	b.SetMember("y", NewInt(2))
	b.SetMember("x", NewInt(1))

	if !Equal(a, b) {
		t.Fatal("Equal() should ignore struct key ordering")
	}
}

func TestParseTagAlias(t *testing.T) {
	tag, ok := ParseTag("i4")
	if !ok || tag != TagInt {
		t.Fatalf("ParseTag(i4) = (%v, %v), want (TagInt, true)", tag, ok)
	}
}

func TestNativeRoundTrip(t *testing.T) {
	s := NewStruct()
	s.SetMember("name", NewString("arith"))
	s.SetMember("args", NewArray(NewInt(1), NewInt(2)))

	n, err := ToNative(s)
	if err != nil {
		t.Fatalf("ToNative: %v", err)
	}
	ns, ok := n.(NativeStruct)
	if !ok {
		t.Fatalf("ToNative returned %T, want NativeStruct", n)
	}
	name, ok := ns.Get("name")
	if !ok || name != "arith" {
		t.Fatalf("ns.Get(name) = (%v, %v)", name, ok)
	}

	back, err := FromNative(ns, NativeEncodingOptions{})
	if err != nil {
		t.Fatalf("FromNative: %v", err)
	}
	if !Equal(s, back) {
		t.Fatal("FromNative(ToNative(s)) != s")
	}
}

func TestFromNativeDateTimeHint(t *testing.T) {
	v, err := FromNative("20260803T10:00:00", NativeEncodingOptions{DateTimeStrings: true})
	if err != nil {
		t.Fatalf("FromNative: %v", err)
	}
	if v.Tag() != TagDateTime {
		t.Fatalf("Tag() = %v, want TagDateTime", v.Tag())
	}
}
