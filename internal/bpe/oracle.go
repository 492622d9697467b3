package bpe

import "github.com/gobpe/tokenizer/internal/vocab"

// Oracle answers whether a pair of adjacent tokens is consistent with
// canonical BPE segmentation: could the two have survived side by side, or
// would some lower-ranked merge have fused them (or a part of one with a
// part of the other) first. This is spec.md's C6 pair-validity check --
// a direct port of the rs-bpe decision procedure, with no teacher analogue.
type Oracle struct {
	v          *vocab.Vocabulary
	split      SplitTable
	pairLookup map[vocab.Pair]uint32
}

// NewOracle builds an Oracle over a split table and pair lookup produced by
// BuildSplitTable.
func NewOracle(v *vocab.Vocabulary, split SplitTable, pairLookup map[vocab.Pair]uint32) *Oracle {
	return &Oracle{v: v, split: split, pairLookup: pairLookup}
}

// IsValidTokenPair reports whether t1 immediately followed by t2 is a valid
// boundary under canonical greedy BPE: no merge with a rank lower than the
// rank that sealed either operand could fuse a suffix of t1 with a prefix
// of t2 first.
//
// The loop maintains a running limit on merge ids (unconstrained at the top
// level). At each step: if (t1, t2) is itself a registered merge with an id
// below the limit, that merge would have fired, so the pair is invalid.
// Otherwise the operand with the higher id is peeled back by one level
// using its own split entry, and the check repeats on the narrower pair:
// peeling t1 to its right half sets the limit to t1's id, peeling t2 to its
// left half sets it to t2's id plus one. Once both operands are base tokens,
// the boundary is valid.
func (o *Oracle) IsValidTokenPair(t1, t2 uint32) bool {
	limit := ^uint32(0)

	for {
		if newID, ok := o.pairLookup[vocab.Pair{Left: t1, Right: t2}]; ok && newID < limit {
			return false
		}

		base1 := o.split.IsBase(t1)
		base2 := o.split.IsBase(t2)
		if base1 && base2 {
			return true
		}

		if !base1 && (base2 || t1 > t2) {
			limit = t1
			t1 = o.split[t1].Right
		} else {
			limit = t2 + 1
			t2 = o.split[t2].Left
		}
	}
}
