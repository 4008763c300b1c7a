package server

import (
	"testing"

	"github.com/glensc/xmlrpc-go/message"
	"github.com/glensc/xmlrpc-go/value"
)

func TestCheckSignatureNoSignaturesAlwaysPasses(t *testing.T) {
	entry := &message.Entry{}
	if fault := checkSignature(entry, []*value.Value{value.NewInt(1)}); fault != nil {
		t.Fatalf("checkSignature() = %v, want nil", fault)
	}
}

func TestCheckSignatureMatchingAlternative(t *testing.T) {
	entry := &message.Entry{
		Signatures: [][]value.Tag{
			{value.TagInt, value.TagString},
			{value.TagInt, value.TagInt, value.TagInt},
		},
	}
	params := []*value.Value{value.NewInt(1), value.NewInt(2)}
	if fault := checkSignature(entry, params); fault != nil {
		t.Fatalf("checkSignature() = %v, want nil", fault)
	}
}

func TestCheckSignatureAnyWildcard(t *testing.T) {
	entry := &message.Entry{
		Signatures: [][]value.Tag{{value.TagInt, value.TagAny}},
	}
	if fault := checkSignature(entry, []*value.Value{value.NewString("whatever")}); fault != nil {
		t.Fatalf("checkSignature() = %v, want nil", fault)
	}
}

func TestCheckSignatureWrongArity(t *testing.T) {
	entry := &message.Entry{
		Signatures: [][]value.Tag{{value.TagInt, value.TagString}},
	}
	fault := checkSignature(entry, []*value.Value{value.NewString("a"), value.NewString("b")})
	if fault == nil {
		t.Fatal("expected fault for wrong arity")
	}
	if fault.Message != "No method signature matches number of parameters" {
		t.Fatalf("Message = %q", fault.Message)
	}
}

func TestCheckSignatureLastAlternativeMismatch(t *testing.T) {
	entry := &message.Entry{
		Signatures: [][]value.Tag{
			{value.TagInt, value.TagInt},
			{value.TagInt, value.TagString},
		},
	}
	// Neither alternative matches a boolean param; the reported mismatch
	// must come from the *last* alternative attempted (TagString), not
	// the first (TagInt) — SPEC_FULL.md §9's documented behavior.
	fault := checkSignature(entry, []*value.Value{value.NewBool(true)})
	if fault == nil {
		t.Fatal("expected mismatch fault")
	}
	want := "Wanted string, got boolean at param 1"
	if fault.Message != want {
		t.Fatalf("Message = %q, want %q", fault.Message, want)
	}
}
