package bpe

import "testing"

func TestReferenceEncoderBasicExamples(t *testing.T) {
	r := helloRig(t)

	cases := []struct {
		text string
		want []uint32
	}{
		{"he", []uint32{256}},
		{"hell", []uint32{257, uint32('l')}},
		{"", nil},
	}
	for _, c := range cases {
		got := r.ref.Encode([]byte(c.text))
		if !equalUint32(got, c.want) {
			t.Fatalf("ReferenceEncoder.Encode(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestReferenceEncoderLeftmostTieBreak(t *testing.T) {
	r := helloRig(t)
	// "hehe": two independent (h,e) merges at equal rank; leftmost-first
	// tie-break must not change the outcome since the pairs don't overlap.
	got := r.ref.Encode([]byte("hehe"))
	want := []uint32{256, 256}
	if !equalUint32(got, want) {
		t.Fatalf("Encode(hehe) = %v, want %v", got, want)
	}
}
