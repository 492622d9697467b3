// Package vocab holds the tokenizer's data model (spec.md §3): the
// bytes<->id vocabulary bijection and the ordered merge list, plus (in
// json.go) the JSON wire format for the vocabulary; the merge list is not
// part of that format.
package vocab

import "fmt"

// Pair is an ordered (left, right) token-id pair, used both as a merge rule
// key and as a split-table entry.
type Pair struct {
	Left, Right uint32
}

// Merge is one entry in the ordered merge list: combining Left and Right
// produces New. Index in the merge list equals merge rank; lower rank
// means the merge happened earlier in training and so has higher priority.
type Merge struct {
	Left, Right, New uint32
}

// Vocabulary is the bijection between token ids and their byte sequences,
// plus the ordered merges that produced them (empty for base/byte tokens).
//
// Invariants maintained by New/ from callers:
//   - every id in [0, len(VocabR)) appears exactly once in VocabR
//   - Vocab[string(VocabR[id])] == id
//   - for byte-level BPE, ids are assigned in merge order: id = 256 + merge index
type Vocabulary struct {
	Vocab  map[string]uint32
	VocabR [][]byte
	Merges []Merge

	// PairToNew maps a registered merge's (left,right) to its produced id,
	// for O(1) split-table/oracle lookups.
	PairToNew map[Pair]uint32

	// MaxTokenLen is the longest token's byte length, used by the encoder's
	// streaming tail-reserve margin.
	MaxTokenLen int
}

// New builds a Vocabulary from a dense id->bytes slice and an ordered merge
// list, validating the bijection invariants.
func New(vocabR [][]byte, merges []Merge) (*Vocabulary, error) {
	v := &Vocabulary{
		VocabR:    vocabR,
		Vocab:     make(map[string]uint32, len(vocabR)),
		Merges:    merges,
		PairToNew: make(map[Pair]uint32, len(merges)),
	}

	for id, bs := range vocabR {
		if len(bs) == 0 {
			return nil, fmt.Errorf("vocab: token id %d has empty byte sequence", id)
		}
		key := string(bs)
		if _, dup := v.Vocab[key]; dup {
			return nil, fmt.Errorf("vocab: duplicate byte sequence %q", key)
		}
		v.Vocab[key] = uint32(id)
		if len(bs) > v.MaxTokenLen {
			v.MaxTokenLen = len(bs)
		}
	}

	for _, m := range merges {
		if int(m.Left) >= len(vocabR) || int(m.Right) >= len(vocabR) || int(m.New) >= len(vocabR) {
			return nil, fmt.Errorf("vocab: merge %+v references an id outside [0,%d)", m, len(vocabR))
		}
		v.PairToNew[Pair{m.Left, m.Right}] = m.New
	}

	for b := 0; b < 256; b++ {
		if _, ok := v.Vocab[string([]byte{byte(b)})]; !ok {
			return nil, fmt.Errorf("vocab: missing base token for byte 0x%02x", b)
		}
	}

	return v, nil
}

// Len reports the vocabulary size.
func (v *Vocabulary) Len() int { return len(v.VocabR) }

// Bytes returns the byte sequence for id, or nil if out of range.
func (v *Vocabulary) Bytes(id uint32) []byte {
	if int(id) >= len(v.VocabR) {
		return nil
	}
	return v.VocabR[id]
}

// ByteToken returns the base token id for a single raw byte.
func (v *Vocabulary) ByteToken(b byte) uint32 {
	return v.Vocab[string([]byte{b})]
}

// Decode concatenates the byte sequences for ids -- byte-level BPE decoding
// is simple concatenation per spec.md §6.
func (v *Vocabulary) Decode(ids []uint32) []byte {
	if len(ids) == 0 {
		return nil
	}
	total := 0
	for _, id := range ids {
		total += len(v.VocabR[id])
	}
	out := make([]byte, 0, total)
	for _, id := range ids {
		out = append(out, v.VocabR[id]...)
	}
	return out
}

// Patterns returns the vocabulary's byte sequences and parallel ids in id
// order, the shape automaton.Build expects.
func (v *Vocabulary) Patterns() ([][]byte, []uint32) {
	ids := make([]uint32, len(v.VocabR))
	for i := range ids {
		ids[i] = uint32(i)
	}
	return v.VocabR, ids
}
