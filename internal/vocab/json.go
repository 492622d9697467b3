package vocab

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gobpe/tokenizer/internal/errs"
)

// jsonFile mirrors spec.md §6's wire format: {"vocab": {<base64>: rank}}.
type jsonFile struct {
	Vocab map[string]int `json:"vocab"`
}

// LoadJSON parses the vocabulary JSON format from r: a single object whose
// keys are base64-encoded token byte sequences and whose values are ranks.
// The rank set must be exactly {0, ..., N-1}; the parser tolerates
// insignificant whitespace and does not assume any particular key order
// (encoding/json.Decoder handles both for free). Returns a dense id->bytes
// slice ready for vocab.New.
func LoadJSON(r io.Reader) ([][]byte, error) {
	var f jsonFile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		return nil, errs.Wrap(errs.VocabFormatError, "decode vocab json", err)
	}
	if f.Vocab == nil {
		return nil, errs.Wrap(errs.VocabFormatError, "missing \"vocab\" object", nil)
	}

	vocabR := make([][]byte, len(f.Vocab))
	seen := make([]bool, len(f.Vocab))
	for encoded, rank := range f.Vocab {
		if rank < 0 || rank >= len(f.Vocab) {
			return nil, errs.Wrap(errs.VocabFormatError, fmt.Sprintf("rank %d out of range [0,%d)", rank, len(f.Vocab)), nil)
		}
		if seen[rank] {
			return nil, errs.Wrap(errs.VocabFormatError, fmt.Sprintf("duplicate rank %d", rank), nil)
		}
		seen[rank] = true

		tokenBytes, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, errs.Wrap(errs.VocabFormatError, fmt.Sprintf("invalid base64 token at rank %d", rank), err)
		}
		vocabR[rank] = tokenBytes
	}

	for rank, ok := range seen {
		if !ok {
			return nil, errs.Wrap(errs.VocabFormatError, fmt.Sprintf("rank set is not contiguous, missing %d", rank), nil)
		}
	}

	return vocabR, nil
}

// SaveJSON writes tokens (indexed by rank) in the same shape LoadJSON
// reads, ranks ascending for determinism. Every token's bytes are
// base64-encoded unconditionally, matching spec.md §6's "non-ASCII bytes
// are always base64-encoded, never raw" for the full byte range.
//
// encoding/json would re-sort a map[string]int's keys alphabetically, which
// would scramble rank order, so the object body is assembled by hand here
// (key strings still go through json.Marshal for correct escaping).
func SaveJSON(w io.Writer, tokens [][]byte) error {
	bw := newByteWriter(w)
	bw.writeString(`{"vocab":{`)
	for rank, bs := range tokens {
		if rank > 0 {
			bw.writeString(",")
		}
		keyJSON, err := json.Marshal(base64.StdEncoding.EncodeToString(bs))
		if err != nil {
			return errs.Wrap(errs.IoError, "encode vocab token", err)
		}
		bw.write(keyJSON)
		bw.writeString(":")
		bw.writeString(fmt.Sprintf("%d", rank))
	}
	bw.writeString("}}")
	return bw.err
}

// byteWriter accumulates the first write error so callers can check it once.
type byteWriter struct {
	w   io.Writer
	err error
}

func newByteWriter(w io.Writer) *byteWriter { return &byteWriter{w: w} }

func (b *byteWriter) write(p []byte) {
	if b.err != nil {
		return
	}
	_, b.err = b.w.Write(p)
	if b.err != nil {
		b.err = errs.Wrap(errs.IoError, "write vocab json", b.err)
	}
}

func (b *byteWriter) writeString(s string) { b.write([]byte(s)) }
