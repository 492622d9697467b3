package bpe

import "testing"

func TestOracleRejectsDirectRegisteredMerge(t *testing.T) {
	r := helloRig(t)

	if r.oracle.IsValidTokenPair(uint32('h'), uint32('e')) {
		t.Fatalf("(h,e) has a registered merge, pair should be invalid")
	}
	if r.oracle.IsValidTokenPair(256 /* he */, uint32('l')) {
		t.Fatalf("(he,l) has a registered merge, pair should be invalid")
	}
}

func TestOracleAcceptsUnrelatedBaseTokens(t *testing.T) {
	r := helloRig(t)

	if !r.oracle.IsValidTokenPair(uint32('h'), uint32('l')) {
		t.Fatalf("(h,l) has no registered merge and should be valid")
	}
}

func TestOracleAcceptsNonCrossingCompositePair(t *testing.T) {
	r := helloRig(t)

	// "he" (256) followed by "e": no direct merge, and peeling "he" down to
	// its own trailing byte ("e") against the following "e" finds no
	// registered pair either, so the boundary is valid.
	if !r.oracle.IsValidTokenPair(256, uint32('e')) {
		t.Fatalf("(he,e) should be a valid boundary")
	}
}
