// Package bpe implements the split/prefix tables, pair-validity oracle, and
// the backtracking encoder that together reproduce canonical BPE
// segmentation without re-running the full merge simulation per token (C5-C7).
package bpe

import (
	"fmt"

	"github.com/gobpe/tokenizer/internal/vocab"
)

// NoPrefixMatch marks a token id with no shorter automaton match for its
// (n-1)-byte prefix.
const NoPrefixMatch = ^uint32(0)

// SplitTable maps a token id to the pair of ids whose merge produced it.
// Base (single-byte) tokens are self-referential: split[id] == {id, id}.
type SplitTable []vocab.Pair

// IsBase reports whether id has no further decomposition.
func (s SplitTable) IsBase(id uint32) bool {
	p := s[id]
	return p.Left == id && p.Right == id
}

// PrefixTable maps a token id to the automaton's longest match over the
// token's own bytes minus its last byte, or NoPrefixMatch if none exists.
type PrefixTable []uint32

// BuildSplitTable reconstructs, for every multi-byte token in v, the single
// merge that produced it, by replaying greedy BPE merging over its own byte
// sequence using only pairs already registered by tokens of lower id.
// Because every vocabulary produced by BPE training assigns ids in merge
// order, this induction recovers the same split spec.md's trainer would
// have recorded directly, and additionally works for a vocabulary loaded
// from bytes alone, with no separate merge list.
//
// The returned pair lookup is always rebuilt from the byte sequences alone;
// v.Merges is not read.
func BuildSplitTable(v *vocab.Vocabulary) (SplitTable, map[vocab.Pair]uint32, error) {
	n := v.Len()
	split := make(SplitTable, n)
	pairLookup := make(map[vocab.Pair]uint32, n)

	for id := 0; id < n; id++ {
		bs := v.VocabR[id]
		if len(bs) == 1 {
			split[id] = vocab.Pair{Left: uint32(id), Right: uint32(id)}
			continue
		}

		symbols := make([]uint32, len(bs))
		for i, b := range bs {
			symbols[i] = v.ByteToken(b)
		}

		// Reduce using only already-registered sub-merges until exactly two
		// symbols remain -- that final pair needs no prior registration,
		// since it's precisely the merge this token's id is registering.
		for len(symbols) > 2 {
			bestPos := -1
			var bestNew uint32
			for i := 0; i+1 < len(symbols); i++ {
				p := vocab.Pair{Left: symbols[i], Right: symbols[i+1]}
				newID, ok := pairLookup[p]
				if ok && (bestPos == -1 || newID < bestNew) {
					bestPos = i
					bestNew = newID
				}
			}
			if bestPos == -1 {
				return nil, nil, fmt.Errorf("bpe: cannot reconstruct split for token %d (%q): no registered sub-merge applies", id, bs)
			}
			merged := make([]uint32, 0, len(symbols)-1)
			merged = append(merged, symbols[:bestPos]...)
			merged = append(merged, bestNew)
			merged = append(merged, symbols[bestPos+2:]...)
			symbols = merged
		}

		p := vocab.Pair{Left: symbols[0], Right: symbols[1]}
		split[id] = p
		pairLookup[p] = uint32(id)
	}

	return split, pairLookup, nil
}

// PairLookup rebuilds the (pair -> id) map a SplitTable implies, for
// callers (e.g. the cache codec) that persist only the split table
// itself and need the inverse lookup reconstructed on load.
func (s SplitTable) PairLookup() map[vocab.Pair]uint32 {
	out := make(map[vocab.Pair]uint32, len(s))
	for id := range s {
		if s.IsBase(uint32(id)) {
			continue
		}
		out[s[id]] = uint32(id)
	}
	return out
}

// Matcher is the subset of *automaton.Automaton the table builders need;
// satisfied by *automaton.Automaton, narrowed here to keep this package
// decoupled from the automaton's full surface.
type Matcher interface {
	LongestMatch(text []byte, start int) (id uint32, length int, ok bool)
}

// BuildPrefixTable computes, for every multi-byte token, the automaton's
// longest match over the token's bytes minus its final byte -- the
// "shorter candidate" the backtrack encoder falls back to when a match
// is rejected, before it resorts to popping the previous token.
func BuildPrefixTable(v *vocab.Vocabulary, a Matcher) PrefixTable {
	n := v.Len()
	table := make(PrefixTable, n)
	for id := 0; id < n; id++ {
		bs := v.VocabR[id]
		if len(bs) <= 1 {
			table[id] = NoPrefixMatch
			continue
		}
		prefix := bs[:len(bs)-1]
		if matchID, _, ok := a.LongestMatch(prefix, 0); ok {
			table[id] = matchID
		} else {
			table[id] = NoPrefixMatch
		}
	}
	return table
}
