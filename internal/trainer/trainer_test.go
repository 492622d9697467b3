package trainer

import (
	"testing"

	"github.com/gobpe/tokenizer/internal/vocab"
)

func mergeKey(m vocab.Merge) vocab.Pair { return vocab.Pair{Left: m.Left, Right: m.Right} }

// TestTrainSpecWorkedExample reproduces spec.md §8 item 6's end-to-end
// training scenario: corpus ["hello","hello","help","hell"], target
// size 258. (h,e) has count 4 after word collection (every word starts
// with "he"); merging it first produces "he" at id 256. The second
// iteration's best pair is (he,l), also count 4 (every word still has
// an "l" right after "he"), producing "hel" at id 257 -- spec's own
// note that no tie actually arises here.
func TestTrainSpecWorkedExample(t *testing.T) {
	texts := []string{"hello", "hello", "help", "hell"}
	vocabR, merges, err := Train(texts, 258, Options{})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if len(vocabR) != 258 {
		t.Fatalf("len(vocabR) = %d, want 258", len(vocabR))
	}
	if len(merges) != 2 {
		t.Fatalf("len(merges) = %d, want 2: %+v", len(merges), merges)
	}

	want := []vocab.Merge{
		{Left: uint32('h'), Right: uint32('e'), New: 256},
		{Left: 256, Right: uint32('l'), New: 257},
	}
	for i, m := range want {
		if merges[i] != m {
			t.Fatalf("merges[%d] = %+v, want %+v", i, merges[i], m)
		}
	}
	if string(vocabR[256]) != "he" {
		t.Fatalf("vocabR[256] = %q, want \"he\"", vocabR[256])
	}
	if string(vocabR[257]) != "hel" {
		t.Fatalf("vocabR[257] = %q, want \"hel\"", vocabR[257])
	}
}

// TestTrainDeterministic runs training twice over the same corpus and
// requires byte-identical output, per spec.md §4.5's determinism
// guarantee (tie-breaks on counts, deterministic word ordering,
// deterministic in-word application order).
func TestTrainDeterministic(t *testing.T) {
	texts := []string{"banana", "bandana", "anana", "ban", "banana", "band"}
	v1, m1, err := Train(texts, 270, Options{})
	if err != nil {
		t.Fatalf("Train (run 1) failed: %v", err)
	}
	v2, m2, err := Train(texts, 270, Options{})
	if err != nil {
		t.Fatalf("Train (run 2) failed: %v", err)
	}
	if len(m1) != len(m2) {
		t.Fatalf("merge count differs: %d vs %d", len(m1), len(m2))
	}
	for i := range m1 {
		if m1[i] != m2[i] {
			t.Fatalf("merges[%d] differ: %+v vs %+v", i, m1[i], m2[i])
		}
	}
	for i := range v1 {
		if string(v1[i]) != string(v2[i]) {
			t.Fatalf("vocabR[%d] differs: %q vs %q", i, v1[i], v2[i])
		}
	}
}

// TestTrainParallelMatchesSequential checks that splitting pair
// counting across workers (SPEC_FULL's errgroup worker pool) produces
// the same merges as sequential counting -- the private-accumulator-
// per-worker merge is purely an associativity reshuffle of the same
// sums, so results must agree exactly.
func TestTrainParallelMatchesSequential(t *testing.T) {
	texts := []string{
		"the quick brown fox", "the quick brown fox", "jumps over the lazy dog",
		"the the the", "quick quick fox fox fox", "lazy dog barks",
	}
	seq, mSeq, err := Train(texts, 290, Options{Workers: 0})
	if err != nil {
		t.Fatalf("sequential Train failed: %v", err)
	}
	par, mPar, err := Train(texts, 290, Options{Workers: 4})
	if err != nil {
		t.Fatalf("parallel Train failed: %v", err)
	}
	if len(mSeq) != len(mPar) {
		t.Fatalf("merge count differs: sequential %d, parallel %d", len(mSeq), len(mPar))
	}
	for i := range mSeq {
		if mSeq[i] != mPar[i] {
			t.Fatalf("merges[%d] differ: sequential %+v, parallel %+v", i, mSeq[i], mPar[i])
		}
	}
	for i := range seq {
		if string(seq[i]) != string(par[i]) {
			t.Fatalf("vocabR[%d] differs: sequential %q, parallel %q", i, seq[i], par[i])
		}
	}
}

// TestTrainProducesValidVocabulary feeds the trained output straight
// into vocab.New, checking every structural invariant it enforces
// (bijection, merge-reference bounds, full byte coverage) holds for
// trainer output.
func TestTrainProducesValidVocabulary(t *testing.T) {
	texts := []string{"mississippi", "ississippi", "ississippi", "pippi", "mister"}
	vocabR, merges, err := Train(texts, 280, Options{})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	v, err := vocab.New(vocabR, merges)
	if err != nil {
		t.Fatalf("vocab.New(trainer output) failed: %v", err)
	}
	// This corpus runs out of pairs after 13 merges, short of the 280
	// target, so training stops at 256+13 entries.
	if v.Len() != 269 {
		t.Fatalf("v.Len() = %d, want 269", v.Len())
	}
}

// TestTrainRepeatedRunMergesBothOccurrences trains on words made of a
// run of four repeated bytes and checks that the single merge allowed
// by the target size is (l,l)->256 with bytes "ll", and that two such
// tokens decode back to the whole word.
func TestTrainRepeatedRunMergesBothOccurrences(t *testing.T) {
	texts := []string{"llll", "llll", "llll"}
	vocabR, merges, err := Train(texts, 257, Options{})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if len(merges) != 1 {
		t.Fatalf("len(merges) = %d, want 1: %+v", len(merges), merges)
	}
	m := merges[0]
	if m.Left != uint32('l') || m.Right != uint32('l') {
		t.Fatalf("merges[0] = %+v, want (l,l)->256", m)
	}
	if string(vocabR[256]) != "ll" {
		t.Fatalf("vocabR[256] = %q, want \"ll\"", vocabR[256])
	}

	v, err := vocab.New(vocabR, merges)
	if err != nil {
		t.Fatalf("vocab.New failed: %v", err)
	}
	// Nothing left to merge "ll"+"ll" into at this tiny target size,
	// so a "llll" word is two "ll" tokens; decoding that pair must give
	// the word back.
	if got := string(v.Decode([]uint32{256, 256})); got != "llll" {
		t.Fatalf("Decode([256,256]) = %q, want \"llll\"", got)
	}
}

// TestTrainMinFrequencyStopsEarly checks that the merge loop halts
// once the best remaining pair's count drops below MinFrequency, even
// though the requested target_vocab_size has not been reached.
func TestTrainMinFrequencyStopsEarly(t *testing.T) {
	texts := []string{"ab"}
	vocabR, merges, err := Train(texts, 300, Options{MinFrequency: 2})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if len(merges) != 0 {
		t.Fatalf("len(merges) = %d, want 0 (single occurrence, min_frequency 2)", len(merges))
	}
	if len(vocabR) != 256 {
		t.Fatalf("len(vocabR) = %d, want 256 (no merges applied)", len(vocabR))
	}
}

// TestTrainMaxTokenLengthRejectsOversizedMerge checks that a merge
// which would exceed MaxTokenLength is skipped (dropped from further
// consideration) without halting the loop or consuming a vocab slot,
// letting a shorter-producing merge take its place.
func TestTrainMaxTokenLengthRejectsOversizedMerge(t *testing.T) {
	texts := []string{"aaaa", "aaaa", "aaaa", "bb", "bb"}
	vocabR, merges, err := Train(texts, 258, Options{MaxTokenLength: 2})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	for _, m := range merges {
		if len(vocabR[m.New]) > 2 {
			t.Fatalf("merge produced token longer than MaxTokenLength: %q", vocabR[m.New])
		}
	}
}

// TestTrainSpecialTokensReserveIds checks that special tokens occupy
// ids right after the base 256 bytes and are never produced by a
// merge nor consumed as a merge operand.
func TestTrainSpecialTokensReserveIds(t *testing.T) {
	special := [][]byte{[]byte("<pad>"), []byte("<eos>")}
	texts := []string{"hello", "hello", "hello"}
	vocabR, merges, err := Train(texts, 260, Options{SpecialTokens: special})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if string(vocabR[256]) != "<pad>" || string(vocabR[257]) != "<eos>" {
		t.Fatalf("special tokens not at ids 256-257: %q, %q", vocabR[256], vocabR[257])
	}
	for _, m := range merges {
		if m.Left == 256 || m.Left == 257 || m.Right == 256 || m.Right == 257 {
			t.Fatalf("merge %+v references a reserved special-token id", m)
		}
	}
}

func TestTrainRejectsTooSmallTarget(t *testing.T) {
	_, _, err := Train([]string{"a"}, 10, Options{})
	if err == nil {
		t.Fatalf("expected error for target vocab size below the base alphabet")
	}
}
