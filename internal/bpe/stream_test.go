package bpe

import "testing"

func TestStreamEncoderMatchesSingleShotAcrossChunkBoundaries(t *testing.T) {
	r := helloRig(t)
	se := NewStreamEncoder(r.enc, r.v)

	text := "hellohellohelp"
	var got []uint32
	// Feed the text one byte at a time, the smallest possible chunks, to
	// stress the tail-reserve margin.
	for i := 0; i < len(text); i++ {
		got = append(got, se.Push([]byte{text[i]})...)
	}
	got = append(got, se.Flush()...)

	want := r.enc.Encode([]byte(text))
	if !equalUint32(got, want) {
		t.Fatalf("streamed = %v, want %v (single-shot)", got, want)
	}
}

func TestStreamEncoderEmptyFlush(t *testing.T) {
	r := helloRig(t)
	se := NewStreamEncoder(r.enc, r.v)
	if got := se.Flush(); got != nil {
		t.Fatalf("Flush on empty stream = %v, want nil", got)
	}
}

func TestStreamEncoderChunkedMatchesSingleShot(t *testing.T) {
	r := helloRig(t)
	se := NewStreamEncoder(r.enc, r.v)

	chunks := []string{"hel", "lo", "hel", "p", "hell"}
	var got []uint32
	for _, c := range chunks {
		got = append(got, se.Push([]byte(c))...)
	}
	got = append(got, se.Flush()...)

	full := ""
	for _, c := range chunks {
		full += c
	}
	want := r.enc.Encode([]byte(full))
	if !equalUint32(got, want) {
		t.Fatalf("streamed = %v, want %v", got, want)
	}
}
