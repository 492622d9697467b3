package bpe

import (
	"testing"

	"github.com/gobpe/tokenizer/internal/vocab"
)

func TestEncoderBasicExamples(t *testing.T) {
	r := helloRig(t)

	cases := []struct {
		text string
		want []uint32
	}{
		{"hell", []uint32{257, uint32('l')}},       // hel + l
		{"hello", []uint32{257, uint32('l'), uint32('o')}}, // hel + l + o
		{"help", []uint32{257, uint32('p')}},        // hel + p
		{"he", []uint32{256}},
	}

	for _, c := range cases {
		got := r.enc.Encode([]byte(c.text))
		if !equalUint32(got, c.want) {
			t.Fatalf("Encode(%q) = %v, want %v", c.text, got, c.want)
		}
		if decoded := r.v.Decode(got); string(decoded) != c.text {
			t.Fatalf("Decode(Encode(%q)) = %q", c.text, decoded)
		}
	}
}

func TestEncoderEmptyInput(t *testing.T) {
	r := helloRig(t)
	if got := r.enc.Encode(nil); got != nil {
		t.Fatalf("Encode(nil) = %v, want nil", got)
	}
}

// TestEncoderMatchesReferenceEncoderExhaustive checks the encoder/canonical
// BPE equivalence property (spec's worked-example testable property) over
// every string up to length 6 in a 3-letter alphabet, against a richer
// vocabulary with overlapping merge chains designed to force backtracking.
func TestEncoderMatchesReferenceEncoderExhaustive(t *testing.T) {
	merges := []vocab.Merge{
		{Left: uint32('a'), Right: uint32('b'), New: 256}, // "ab"
		{Left: uint32('b'), Right: uint32('a'), New: 257}, // "ba"
		{Left: 256, Right: uint32('a'), New: 258},         // "aba"
		{Left: uint32('a'), Right: 256, New: 259},         // "aab"
		{Left: uint32('b'), Right: 256, New: 260},         // "bab"
	}
	extra := [][]byte{[]byte("ab"), []byte("ba"), []byte("aba"), []byte("aab"), []byte("bab")}
	r := buildRig(t, extra, merges)

	const maxLen = 6
	alphabet := []byte("abc")

	var texts [][]byte
	var gen func(prefix []byte, depth int)
	gen = func(prefix []byte, depth int) {
		if depth > 0 {
			cp := make([]byte, len(prefix))
			copy(cp, prefix)
			texts = append(texts, cp)
		}
		if depth == maxLen {
			return
		}
		for _, c := range alphabet {
			gen(append(prefix, c), depth+1)
		}
	}
	gen(nil, 0)

	for _, text := range texts {
		got := r.enc.Encode(text)
		want := r.ref.Encode(text)
		if !equalUint32(got, want) {
			t.Fatalf("mismatch for %q: encoder=%v reference=%v", text, got, want)
		}
		if decoded := r.v.Decode(got); string(decoded) != string(text) {
			t.Fatalf("Decode(Encode(%q)) = %q", text, decoded)
		}
	}
}

func equalUint32(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
