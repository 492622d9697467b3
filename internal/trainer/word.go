// Package trainer implements the BPE training procedure (C8): word
// collection, symbol lists with neighbour pointers, incremental pair
// counting, and a priority-queue-driven merge loop.
package trainer

import "github.com/gobpe/tokenizer/internal/vocab"

// word is one distinct byte sequence from the training corpus, held as a
// doubly linked list of symbol slots so a merge occurrence can be applied
// in O(1) without shifting the rest of the list. Adapted from the
// tokens/prev/next/live-version arrays the teacher's incremental streaming
// encoder uses to apply merges against a live, mutating symbol sequence --
// here re-pointed at "merge by current max pair count" instead of "merge
// by fixed rank".
type word struct {
	symbols []uint32
	prev    []int
	next    []int
	live    []uint32
	liveGen uint32
	head    int
	count   int64
}

// newWord builds the initial all-base-byte symbol list for bs, weighted by
// occurrence count.
func newWord(bs []byte, count int64, v *vocab.Vocabulary) *word {
	n := len(bs)
	w := &word{
		symbols: make([]uint32, n),
		prev:    make([]int, n),
		next:    make([]int, n),
		live:    make([]uint32, n),
		liveGen: 1,
		head:    0,
		count:   count,
	}
	for i, b := range bs {
		w.symbols[i] = v.ByteToken(b)
		w.prev[i] = i - 1
		w.next[i] = i + 1
		w.live[i] = w.liveGen
	}
	w.next[n-1] = -1
	return w
}

// forEachPair invokes fn for every live adjacent pair in the word.
func (w *word) forEachPair(fn func(left, right int)) {
	for i := w.head; i != -1 && w.next[i] != -1; i = w.next[i] {
		fn(i, w.next[i])
	}
}

// pairAt returns the token ids of the pair starting at slot i, or ok=false
// if i has no live right neighbour.
func (w *word) pairAt(i int) (vocab.Pair, int, bool) {
	j := w.next[i]
	if j == -1 {
		return vocab.Pair{}, -1, false
	}
	return vocab.Pair{Left: w.symbols[i], Right: w.symbols[j]}, j, true
}

// applyMerge merges the pair at slots (i, j) (j must be w.next[i]) into
// newID, splicing j out of the linked list. Returns the left and right
// neighbour slots exposed by the merge (either may be -1), whose pairs
// must be re-evaluated by the caller.
func (w *word) applyMerge(i, j int, newID uint32) (leftNeighbour, rightNeighbour int) {
	w.symbols[i] = newID
	w.liveGen++
	w.live[i] = w.liveGen

	w.live[j] = 0
	nj := w.next[j]
	w.next[i] = nj
	if nj != -1 {
		w.prev[nj] = i
	}
	w.prev[j], w.next[j] = -1, -1

	return w.prev[i], w.next[i]
}
