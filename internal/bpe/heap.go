package bpe

// mergeHeap/mergeCand are adapted from the teacher's internal/utils
// package, which carried two heap shapes: a container/heap-based
// MergeHeap (utils/heap.go) and a hand-rolled binary heap of the same
// name (utils/merge_heap.go). This keeps the hand-rolled one -- its
// Push/Pop take/return mergeCand directly, with no any-boxing or
// interface dispatch per operation, which matters on ReferenceEncoder's
// hot per-symbol-pair path -- and drops the container/heap variant
// entirely rather than keeping both, since only one consumer remains.
// Field types move from int to uint32 (token ids throughout this
// package are uint32) and the preAllocated/Reset bookkeeping is dropped,
// since ReferenceEncoder builds one mergeHeap per Encode call rather
// than reusing one across calls.

// mergeCand is a candidate adjacent-pair merge discovered while running the
// reference greedy encoder: the rank at which the merge was registered, its
// left-index position in the symbol list, the two token ids it joins, and
// the live-version stamps of both slots at the time it was queued (so a
// stale candidate, invalidated by an earlier merge touching either slot,
// can be recognized and dropped on pop instead of acted on).
type mergeCand struct {
	rank       uint32
	pos        int
	leftToken  uint32
	rightToken uint32
	verL, verR int
}

// mergeHeap is a binary min-heap over mergeCand, ordered by rank and then by
// leftmost position to keep merge order deterministic on rank ties.
type mergeHeap struct {
	items []mergeCand
}

func newMergeHeap() *mergeHeap {
	return &mergeHeap{items: make([]mergeCand, 0, 64)}
}

func (h *mergeHeap) Len() int { return len(h.items) }

func (h *mergeHeap) less(a, b mergeCand) bool {
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	return a.pos < b.pos
}

func (h *mergeHeap) Push(c mergeCand) {
	h.items = append(h.items, c)
	h.up(len(h.items) - 1)
}

func (h *mergeHeap) Pop() (mergeCand, bool) {
	if len(h.items) == 0 {
		return mergeCand{}, false
	}
	n := len(h.items) - 1
	h.items[0], h.items[n] = h.items[n], h.items[0]
	result := h.items[n]
	h.items = h.items[:n]
	if len(h.items) > 0 {
		h.down(0)
	}
	return result, true
}

func (h *mergeHeap) up(i int) {
	for {
		parent := (i - 1) / 2
		if parent == i || !h.less(h.items[i], h.items[parent]) {
			break
		}
		h.items[parent], h.items[i] = h.items[i], h.items[parent]
		i = parent
	}
}

func (h *mergeHeap) down(i int) {
	n := len(h.items)
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < n && h.less(h.items[left], h.items[smallest]) {
			smallest = left
		}
		if right < n && h.less(h.items[right], h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
