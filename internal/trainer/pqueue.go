package trainer

import "github.com/gobpe/tokenizer/internal/vocab"

// candidate is a priority-queue entry awaiting merge: a pair and the count
// it was enqueued with. A popped candidate is re-validated against the
// live count before being acted on (lazy invalidation), per spec's
// "priority queue with lazy invalidation" design note.
type candidate struct {
	pair  vocab.Pair
	count int64
}

// pairQueue is a max-priority queue over merge candidates: highest count
// first, ties broken by ascending (left, right) for determinism. Adapted
// from the teacher's BucketQueue (internal/utils/bucket_queue.go), inverted
// to pop the *highest* bucket first and re-pointed at training pair counts
// instead of merge ranks; counts are bounded by the corpus's total
// adjacent-symbol-pair mass, known upfront, so a flat bucket array stays
// the simpler choice over a binary heap for realistic corpus sizes.
type pairQueue struct {
	buckets [][]candidate
	current int
	size    int
}

func newPairQueue(maxCount int64) *pairQueue {
	if maxCount < 0 {
		maxCount = 0
	}
	return &pairQueue{
		buckets: make([][]candidate, maxCount+1),
		current: -1,
	}
}

func (q *pairQueue) Len() int { return q.size }

// Push enqueues a candidate. Counts above the queue's configured maximum
// are clamped into the top bucket defensively; callers size the queue from
// the true upper bound so this should never trigger in practice.
func (q *pairQueue) Push(c candidate) {
	idx := int(c.count)
	if idx >= len(q.buckets) {
		idx = len(q.buckets) - 1
	}
	if idx < 0 {
		return
	}

	bucket := q.buckets[idx]
	insertPos := len(bucket)
	for i, existing := range bucket {
		if pairLess(c.pair, existing.pair) {
			insertPos = i
			break
		}
	}
	bucket = append(bucket, candidate{})
	copy(bucket[insertPos+1:], bucket[insertPos:])
	bucket[insertPos] = c
	q.buckets[idx] = bucket

	q.size++
	if idx > q.current {
		q.current = idx
	}
}

// Pop removes and returns the highest-count candidate (ties broken
// leftmost-pair-ascending).
func (q *pairQueue) Pop() (candidate, bool) {
	for q.current >= 0 && len(q.buckets[q.current]) == 0 {
		q.current--
	}
	if q.current < 0 {
		return candidate{}, false
	}
	bucket := q.buckets[q.current]
	c := bucket[0]
	q.buckets[q.current] = bucket[1:]
	q.size--
	return c, true
}

func pairLess(a, b vocab.Pair) bool {
	if a.Left != b.Left {
		return a.Left < b.Left
	}
	return a.Right < b.Right
}
