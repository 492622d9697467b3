package bpe

import "github.com/gobpe/tokenizer/internal/vocab"

// ReferenceEncoder is the textbook greedy BPE merge loop: repeatedly apply
// the lowest-ranked mergeable adjacent pair until none remain. It never
// touches the automaton, the split table, or the oracle -- it exists solely
// as the canonical-BPE oracle spec.md's encoder/canonical-BPE equivalence
// property tests Encoder against, and is never on the hot encode path of a
// deployed tokenizer.
//
// Adapted from the priority-queue merge loop the rest of this package grew
// out of: a symbol list held as a doubly linked list over an array (prev/
// next indices), a min-heap of merge candidates keyed by rank with leftmost
// tie-break, and a live-version stamp per slot so a candidate that's gone
// stale (one of its two slots already merged elsewhere) is recognized and
// dropped on pop rather than applied.
type ReferenceEncoder struct {
	v *vocab.Vocabulary
}

// NewReferenceEncoder builds a ReferenceEncoder over v's byte-to-token map
// and registered merges.
func NewReferenceEncoder(v *vocab.Vocabulary) *ReferenceEncoder {
	return &ReferenceEncoder{v: v}
}

// Encode runs canonical greedy BPE merging on text and returns the
// resulting token ids, left to right.
func (r *ReferenceEncoder) Encode(text []byte) []uint32 {
	n := len(text)
	if n == 0 {
		return nil
	}

	tokens := make([]uint32, n)
	for i, b := range text {
		tokens[i] = r.v.ByteToken(b)
	}

	prev := make([]int, n)
	next := make([]int, n)
	live := make([]int, n)
	for i := 0; i < n; i++ {
		prev[i] = i - 1
		next[i] = i + 1
	}
	prev[0] = -1
	next[n-1] = -1

	h := newMergeHeap()

	pushIfMergeable := func(i int) {
		if i == -1 {
			return
		}
		j := next[i]
		if j == -1 {
			return
		}
		newID, ok := r.v.PairToNew[vocab.Pair{Left: tokens[i], Right: tokens[j]}]
		if !ok {
			return
		}
		h.Push(mergeCand{
			rank:       newID,
			pos:        i,
			leftToken:  tokens[i],
			rightToken: tokens[j],
			verL:       live[i],
			verR:       live[j],
		})
	}

	for i := 0; i != -1 && next[i] != -1; i = next[i] {
		pushIfMergeable(i)
	}

	for {
		c, ok := h.Pop()
		if !ok {
			break
		}
		i := c.pos
		if i == -1 {
			continue
		}
		j := next[i]
		if j == -1 {
			continue
		}
		if live[i] != c.verL || live[j] != c.verR {
			continue
		}

		a, b := tokens[i], tokens[j]
		newID, ok := r.v.PairToNew[vocab.Pair{Left: a, Right: b}]
		if !ok || newID != c.rank || a != c.leftToken || b != c.rightToken {
			continue
		}

		tokens[i] = newID
		nj := next[j]
		next[i] = nj
		if nj != -1 {
			prev[nj] = i
		}
		prev[j], next[j] = -1, -1
		live[i]++
		live[j]++

		if pi := prev[i]; pi != -1 {
			pushIfMergeable(pi)
		}
		pushIfMergeable(i)
	}

	out := make([]uint32, 0, n)
	for i := 0; i != -1; i = next[i] {
		out = append(out, tokens[i])
	}
	return out
}
