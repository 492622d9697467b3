package automaton

import (
	"container/list"
	"fmt"
	"sort"
)

// nfaNode is a plain trie node before arrangement into the double array.
// Grounded on the child-array/fail-pointer trie shape used by the
// Cloudflare ahocorasick example, generalized from [256]*node pointers to
// index-typed fields into a flat slice (no ownership cycles survive into
// the final double-array form; only this intermediate NFA has them, via
// fail links).
type nfaNode struct {
	children map[byte]int // label -> child NFA id
	fail     int
	output   uint32 // sentinelOutput if this node completes no pattern
}

const sentinelOutput = ^uint32(0)

// Build constructs a double-array Aho-Corasick automaton over patterns,
// each pattern's output being ids[i]. Duplicate patterns are rejected, as
// is any zero-length pattern. An empty pattern set yields a root-only
// automaton with no outputs.
func Build(patterns [][]byte, ids []uint32) (*Automaton, error) {
	if len(patterns) != len(ids) {
		return nil, fmt.Errorf("automaton: patterns and ids length mismatch: %d != %d", len(patterns), len(ids))
	}

	nodes := []nfaNode{{children: map[byte]int{}, output: sentinelOutput}}

	for i, p := range patterns {
		if len(p) == 0 {
			return nil, fmt.Errorf("automaton: pattern %d has length 0", i)
		}
		cur := 0
		for _, b := range p {
			next, ok := nodes[cur].children[b]
			if !ok {
				nodes = append(nodes, nfaNode{children: map[byte]int{}, output: sentinelOutput})
				next = len(nodes) - 1
				nodes[cur].children[b] = next
			}
			cur = next
		}
		if nodes[cur].output != sentinelOutput {
			return nil, fmt.Errorf("automaton: duplicate pattern at index %d", i)
		}
		nodes[cur].output = ids[i]
	}

	buildFailureLinks(nodes)
	return arrange(nodes)
}

// buildFailureLinks assigns fail links by BFS from the root, grounded on
// the same queue-driven construction the Cloudflare ahocorasick example
// uses (container/list as the BFS queue).
func buildFailureLinks(nodes []nfaNode) {
	q := list.New()
	for _, child := range nodes[0].children {
		nodes[child].fail = 0
		q.PushBack(child)
	}

	for q.Len() > 0 {
		front := q.Remove(q.Front()).(int)
		u := nodes[front]
		for label, v := range u.children {
			nodes[v].fail = findFail(nodes, front, label)
			q.PushBack(v)
		}
	}
}

// findFail determines child v's (reached from u via label) failure link by
// walking u's own failure-link ancestors for the first one with a child
// labeled label; falls back to the root.
func findFail(nodes []nfaNode, u int, label byte) int {
	f := nodes[u].fail
	for {
		if child, ok := nodes[f].children[label]; ok {
			return child
		}
		if f == 0 {
			return 0
		}
		f = nodes[f].fail
	}
}

// arrangeWork is one parent's pending placement: its NFA id and its sorted
// children labels. Its double-array slot (root fixed at 0) is looked up in
// nfaToDA when the work item is processed.
type arrangeWork struct {
	nfaID  int
	labels []byte
}

// arrange packs the NFA into the double array via density-ordered BFS and
// bucket-based vacancy search, per spec.md's §4.1 three-pass construction.
func arrange(nodes []nfaNode) (*Automaton, error) {
	work := make([]arrangeWork, 0, len(nodes))
	for id, n := range nodes {
		if len(n.children) == 0 {
			continue
		}
		labels := make([]byte, 0, len(n.children))
		for l := range n.children {
			labels = append(labels, l)
		}
		sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
		work = append(work, arrangeWork{nfaID: id, labels: labels})
	}

	// Level by level, so every parent is placed before its children and its
	// double-array slot is known when its base is written; within a level,
	// most children first, ties broken by ascending NFA id for determinism.
	depth := make([]int, len(nodes))
	for id := range nodes {
		for _, c := range nodes[id].children {
			depth[c] = depth[id] + 1
		}
	}
	sort.Slice(work, func(i, j int) bool {
		if di, dj := depth[work[i].nfaID], depth[work[j].nfaID]; di != dj {
			return di < dj
		}
		if len(work[i].labels) != len(work[j].labels) {
			return len(work[i].labels) > len(work[j].labels)
		}
		return work[i].nfaID < work[j].nfaID
	})

	const bucketSize = 256
	states := make([]State, bucketSize)
	used := make([]bool, bucketSize)
	baseUsed := make([]bool, bucketSize)
	bucketFree := []int{bucketSize - 1} // slot 0 (root) is pre-occupied
	used[0] = true

	nfaToDA := make([]uint32, len(nodes))
	nfaToDA[0] = 0

	grow := func() {
		states = append(states, make([]State, bucketSize)...)
		used = append(used, make([]bool, bucketSize)...)
		baseUsed = append(baseUsed, make([]bool, bucketSize)...)
		bucketFree = append(bucketFree, bucketSize)
	}

	findBase := func(labels []byte) uint32 {
		need := len(labels)
		for {
			for bi := 0; bi*bucketSize < len(states); bi++ {
				if bucketFree[bi] < need {
					continue
				}
				start := bi * bucketSize
				end := start + bucketSize
				for b := start; b < end; b++ {
					if b == 0 || baseUsed[b] {
						continue
					}
					fits := true
					for _, l := range labels {
						idx := b ^ int(l)
						if idx == 0 || used[idx] {
							fits = false
							break
						}
					}
					if fits {
						return uint32(b)
					}
				}
			}
			grow()
		}
	}

	for _, w := range work {
		base := findBase(w.labels)
		parentDA := nfaToDA[w.nfaID]
		states[parentDA].Base = base
		baseUsed[int(base)] = true

		for _, l := range w.labels {
			childNFA := nodes[w.nfaID].children[l]
			idx := int(base) ^ int(l)
			used[idx] = true
			bucketFree[idx/bucketSize]--
			states[idx].Check = l
			nfaToDA[childNFA] = uint32(idx)
		}
	}

	// Second pass: translate fail links and outputs from NFA ids to DA indices.
	outputs := []uint32{0} // index 0 is an unused sentinel
	for nfaID, n := range nodes {
		da := nfaToDA[nfaID]
		states[da].Fail = nfaToDA[n.fail]
		if n.output != sentinelOutput {
			outputs = append(outputs, n.output)
			states[da].OutputPos = uint32(len(outputs) - 1)
		}
	}

	return &Automaton{states: states, outputs: outputs}, nil
}
