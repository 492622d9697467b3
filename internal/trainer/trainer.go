package trainer

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/gobpe/tokenizer/internal/errs"
	"github.com/gobpe/tokenizer/internal/tlog"
	"github.com/gobpe/tokenizer/internal/vocab"
)

// Options configures a training run; every field is optional (a zero
// value means "no special tokens", "no frequency floor", "no length
// cap").
type Options struct {
	// SpecialTokens are inserted into the vocabulary right after the
	// base 256 bytes, before any merge-produced id, and never
	// participate in merging themselves.
	SpecialTokens [][]byte

	// MinFrequency stops the merge loop once the best remaining pair's
	// count falls below this threshold. Zero means no floor.
	MinFrequency int64

	// MaxTokenLength rejects a candidate merge whose resulting token
	// would exceed this many bytes, without consuming the merge slot:
	// the pair is dropped from consideration entirely. Zero means no cap.
	MaxTokenLength int

	// Workers bounds the goroutine count used for parallel pair
	// counting (step 4). Zero or negative means sequential counting.
	Workers int
}

// progressCadenceMin is the smallest step, in vocabulary entries,
// between training progress logs; the step is otherwise 1% of the
// target vocab size.
const progressCadenceMin = 1

// Train runs the BPE training procedure over texts (each text is one
// "word", the byte-level-corpus convention spec.md §4.5 step 1
// describes) and returns the assembled vocabulary's byte sequences and
// its ordered merge list, suitable for vocab.New.
func Train(texts []string, targetVocabSize int, opts Options) ([][]byte, []vocab.Merge, error) {
	vocabR, merges, err := train(texts, targetVocabSize, opts)
	if err != nil {
		return nil, nil, err
	}
	return vocabR, merges, nil
}

func train(texts []string, targetVocabSize int, opts Options) ([][]byte, []vocab.Merge, error) {
	baseSize := 256 + len(opts.SpecialTokens)
	if targetVocabSize < baseSize {
		return nil, nil, errs.Wrap(errs.VocabSizeTooSmall, "target vocab size smaller than base alphabet plus special tokens", nil)
	}

	vocabR := make([][]byte, 0, targetVocabSize)
	for b := 0; b < 256; b++ {
		vocabR = append(vocabR, []byte{byte(b)})
	}
	for _, st := range opts.SpecialTokens {
		cp := append([]byte(nil), st...)
		vocabR = append(vocabR, cp)
	}

	// A throwaway vocabulary-in-progress is enough to drive newWord's
	// byte->id lookup; it never sees merges, only the base alphabet
	// plus special tokens, both of which are fixed for the whole run.
	seed, err := vocab.New(append([][]byte(nil), vocabR...), nil)
	if err != nil {
		return nil, nil, err
	}

	// Step 1: word collection. Each text string is used directly as its
	// map key, so a repeated word only increments its count.
	counts := make(map[string]int64, len(texts))
	order := make([]string, 0, len(texts))
	for _, text := range texts {
		key := text
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}
	sort.Strings(order)

	words := make([]*word, len(order))
	for i, key := range order {
		words[i] = newWord([]byte(key), counts[key], seed)
	}

	// Step 4: pair statistics, optionally computed over parallel word
	// chunks (one private accumulator per worker, merged single
	// threaded) per SPEC_FULL's concurrency model.
	pairCounts, whereToUpdate, maxCount := countPairs(words, opts.Workers)

	pq := newPairQueue(maxCount)
	for pair, count := range pairCounts {
		pq.Push(candidate{pair: pair, count: count})
	}

	var merges []vocab.Merge
	logStep := targetVocabSize / 100
	if logStep < progressCadenceMin {
		logStep = progressCadenceMin
	}
	nextLog := len(vocabR) + logStep

	for len(vocabR) < targetVocabSize {
		c, ok := pq.Pop()
		if !ok {
			break
		}
		current := pairCounts[c.pair]
		if current != c.count {
			if current > 0 {
				pq.Push(candidate{pair: c.pair, count: current})
			}
			continue
		}
		if opts.MinFrequency > 0 && current < opts.MinFrequency {
			break
		}

		leftBytes := vocabR[c.pair.Left]
		rightBytes := vocabR[c.pair.Right]
		newBytes := make([]byte, 0, len(leftBytes)+len(rightBytes))
		newBytes = append(newBytes, leftBytes...)
		newBytes = append(newBytes, rightBytes...)

		if opts.MaxTokenLength > 0 && len(newBytes) > opts.MaxTokenLength {
			delete(pairCounts, c.pair)
			delete(whereToUpdate, c.pair)
			continue
		}

		newID := uint32(len(vocabR))
		vocabR = append(vocabR, newBytes)
		merges = append(merges, vocab.Merge{Left: c.pair.Left, Right: c.pair.Right, New: newID})

		applyMergeToCorpus(words, whereToUpdate, pairCounts, c.pair, newID, pq)

		if len(vocabR) >= nextLog {
			tlog.Progress("train_progress", map[string]interface{}{
				"vocab_size": len(vocabR),
				"target":     targetVocabSize,
				"merges":     len(merges),
			})
			nextLog = len(vocabR) + logStep
		}
	}

	return vocabR, merges, nil
}

// countPairs computes initial pair statistics across words, splitting
// the work across a fixed-size errgroup worker pool when opts.Workers
// asks for more than one and there are at least as many words as
// workers (otherwise counting is sequential): each worker owns a private pairCounts/
// whereToUpdate pair, merged single-threaded once every worker
// returns. Returns the merged statistics and the maximum single-pair
// count observed, used to size the priority queue's bucket array.
func countPairs(words []*word, workers int) (map[vocab.Pair]int64, map[vocab.Pair]map[int]struct{}, int64) {
	pairCounts := make(map[vocab.Pair]int64)
	whereToUpdate := make(map[vocab.Pair]map[int]struct{})

	addOccurrence := func(pair vocab.Pair, wi int, count int64) {
		pairCounts[pair] += count
		set, ok := whereToUpdate[pair]
		if !ok {
			set = make(map[int]struct{}, 1)
			whereToUpdate[pair] = set
		}
		set[wi] = struct{}{}
	}

	if workers <= 1 || len(words) < workers {
		for wi, w := range words {
			w.forEachPair(func(i, j int) {
				addOccurrence(vocab.Pair{Left: w.symbols[i], Right: w.symbols[j]}, wi, w.count)
			})
		}
	} else {
		chunkSize := (len(words) + workers - 1) / workers
		type partial struct {
			counts map[vocab.Pair]int64
			where  map[vocab.Pair][]int
		}
		partials := make([]partial, workers)

		g, _ := errgroup.WithContext(context.Background())
		for wk := 0; wk < workers; wk++ {
			wk := wk
			start := wk * chunkSize
			if start >= len(words) {
				continue
			}
			end := start + chunkSize
			if end > len(words) {
				end = len(words)
			}
			partials[wk] = partial{counts: make(map[vocab.Pair]int64), where: make(map[vocab.Pair][]int)}
			p := &partials[wk]
			g.Go(func() error {
				for wi := start; wi < end; wi++ {
					w := words[wi]
					w.forEachPair(func(i, j int) {
						pair := vocab.Pair{Left: w.symbols[i], Right: w.symbols[j]}
						p.counts[pair] += w.count
						p.where[pair] = append(p.where[pair], wi)
					})
				}
				return nil
			})
		}
		_ = g.Wait() // workers never error; private accumulators only

		for _, p := range partials {
			for pair, count := range p.counts {
				pairCounts[pair] += count
			}
			for pair, wis := range p.where {
				set, ok := whereToUpdate[pair]
				if !ok {
					set = make(map[int]struct{}, len(wis))
					whereToUpdate[pair] = set
				}
				for _, wi := range wis {
					set[wi] = struct{}{}
				}
			}
		}
	}

	var maxCount int64
	for _, count := range pairCounts {
		if count > maxCount {
			maxCount = count
		}
	}
	return pairCounts, whereToUpdate, maxCount
}

// applyMergeToCorpus applies one chosen merge across every word known
// to contain it, accumulates the resulting pair-count deltas, and
// pushes only the newly formed pairs (those containing newID) with
// their updated count. The merged pair itself settles to zero and is
// dropped; neighbour pairs whose count fell are not pushed, and their
// older queue entries are re-pushed with the current count when popped
// stale.
func applyMergeToCorpus(words []*word, whereToUpdate map[vocab.Pair]map[int]struct{}, pairCounts map[vocab.Pair]int64, pair vocab.Pair, newID uint32, pq *pairQueue) {
	deltas := make(map[vocab.Pair]int64)
	touched := make(map[vocab.Pair]map[int]struct{})

	addTouched := func(p vocab.Pair, wi int) {
		set, ok := touched[p]
		if !ok {
			set = make(map[int]struct{}, 1)
			touched[p] = set
		}
		set[wi] = struct{}{}
	}

	for wi := range whereToUpdate[pair] {
		w := words[wi]

		i := w.head
		for i != -1 {
			p, j, ok := w.pairAt(i)
			if !ok {
				break
			}
			if p != pair {
				i = w.next[i]
				continue
			}

			li := w.prev[i]
			leftOK := li != -1
			var leftTok uint32
			if leftOK {
				leftTok = w.symbols[li]
			}

			rj := w.next[j]
			rightOK := rj != -1
			var rightTok uint32
			if rightOK {
				rightTok = w.symbols[rj]
			}

			deltas[pair] -= w.count
			if leftOK {
				deltas[vocab.Pair{Left: leftTok, Right: pair.Left}] -= w.count
			}
			if rightOK {
				deltas[vocab.Pair{Left: pair.Right, Right: rightTok}] -= w.count
			}

			w.applyMerge(i, j, newID)

			if leftOK {
				np := vocab.Pair{Left: leftTok, Right: newID}
				deltas[np] += w.count
				addTouched(np, wi)
			}
			if rightOK {
				np := vocab.Pair{Left: newID, Right: rightTok}
				deltas[np] += w.count
				addTouched(np, wi)
			}

			i = w.next[i]
		}
	}

	delete(whereToUpdate, pair)

	for p, delta := range deltas {
		newCount := pairCounts[p] + delta
		if newCount <= 0 {
			delete(pairCounts, p)
			delete(whereToUpdate, p)
			continue
		}
		pairCounts[p] = newCount
	}

	for p, wis := range touched {
		set, ok := whereToUpdate[p]
		if !ok {
			set = make(map[int]struct{}, len(wis))
			whereToUpdate[p] = set
		}
		for wi := range wis {
			set[wi] = struct{}{}
		}
		if count, ok := pairCounts[p]; ok {
			pq.Push(candidate{pair: p, count: count})
		}
	}
}
