package server

import (
	"fmt"

	"github.com/glensc/xmlrpc-go/message"
	"github.com/glensc/xmlrpc-go/value"
)

// checkSignature verifies params against entry's declared signatures, per
// SPEC_FULL.md §4.5 step 2. It tries every alternative whose arity
// matches, keeping the mismatch message of the *last* alternative
// attempted (not the closest match — see DESIGN.md's Open Question
// decision). A nil return means params satisfied some alternative, or
// the entry declared no signatures at all.
func checkSignature(entry *message.Entry, params []*value.Value) *message.Fault {
	if len(entry.Signatures) == 0 {
		return nil
	}

	var lastMismatch string
	matchedArity := false

	for _, sig := range entry.Signatures {
		if len(sig) != len(params)+1 {
			continue
		}
		matchedArity = true

		mismatch := ""
		for i, param := range params {
			want := sig[i+1]
			got := param.Tag()
			if !tagMatches(want, got) {
				mismatch = fmt.Sprintf("Wanted %s, got %s at param %d", want, got, i+1)
				break
			}
		}
		if mismatch == "" {
			return nil
		}
		lastMismatch = mismatch
	}

	if !matchedArity {
		return message.NewFault("incorrect_params", "No method signature matches number of parameters")
	}
	return message.NewFault("incorrect_params", lastMismatch)
}

// tagMatches compares a declared signature tag to a runtime value tag,
// honoring the introspection-v2 `any` wildcard. The `i4`/`int` alias is
// already collapsed to a single TagInt by value.ParseTag, so no further
// normalization is needed here.
func tagMatches(want, got value.Tag) bool {
	return want == value.TagAny || want == got
}
