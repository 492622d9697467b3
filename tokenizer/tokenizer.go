// Package tokenizer is the façade (C11): it loads a vocabulary, builds or
// loads its automaton/split/prefix tables (via internal/cache when a file
// path is available), and drives pre-tokenization plus the backtracking
// encoder to expose Encode/Decode/SaveToFile. Grounded on the teacher's
// bpetok/core.go Encoder/Decoder interface shapes -- that file was an
// unbodied stub, replaced here with a working implementation.
package tokenizer

import (
	"bytes"
	"fmt"
	"os"

	"github.com/gobpe/tokenizer/internal/automaton"
	"github.com/gobpe/tokenizer/internal/bpe"
	"github.com/gobpe/tokenizer/internal/cache"
	"github.com/gobpe/tokenizer/internal/errs"
	"github.com/gobpe/tokenizer/internal/pretok"
	"github.com/gobpe/tokenizer/internal/trainer"
	"github.com/gobpe/tokenizer/internal/vocab"
)

// Tokenizer is the loaded, ready-to-use façade over a vocabulary: the
// double-array automaton, split/prefix tables, pair-validity oracle, and
// backtrack encoder are all immutable after construction and safe for
// concurrent readers (spec.md §5 "Shared-resource policy").
type Tokenizer struct {
	vocab *vocab.Vocabulary
	enc   *bpe.Encoder

	cache *cache.Cache // non-nil only when built via LoadFromFile's cache path
}

// Vocabulary exposes the underlying vocabulary, e.g. for callers that want
// vocab size or raw byte sequences without re-deriving them.
func (t *Tokenizer) Vocabulary() *vocab.Vocabulary { return t.vocab }

// buildTables assembles the automaton, split table, prefix table, and
// oracle over v -- the same sequence internal/bpe's test rig uses, and the
// one internal/cache.LoadOrBuild's BuildFunc wraps for the file-backed path.
func buildTables(v *vocab.Vocabulary) (*automaton.Automaton, bpe.SplitTable, bpe.PrefixTable, *bpe.Oracle, error) {
	patterns, ids := v.Patterns()
	a, err := automaton.Build(patterns, ids)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("tokenizer: building automaton: %w", err)
	}

	split, pairLookup, err := bpe.BuildSplitTable(v)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("tokenizer: building split table: %w", err)
	}
	prefix := bpe.BuildPrefixTable(v, a)
	oracle := bpe.NewOracle(v, split, pairLookup)

	return a, split, prefix, oracle, nil
}

// fromVocabulary wires a loaded/trained vocabulary into a ready Tokenizer,
// building the automaton and auxiliary tables in memory (no cache file).
func fromVocabulary(v *vocab.Vocabulary) (*Tokenizer, error) {
	a, split, prefix, oracle, err := buildTables(v)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{
		vocab: v,
		enc:   bpe.NewEncoder(v, a, prefix, oracle),
	}, nil
}

// New wraps an already-assembled vocabulary (e.g. straight out of a
// trainer.Train call) into a ready-to-use Tokenizer, with no cache file
// involved.
func New(vocabR [][]byte, merges []vocab.Merge) (*Tokenizer, error) {
	v, err := vocab.New(vocabR, merges)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}
	return fromVocabulary(v)
}

// LoadFromFile reads a vocabulary JSON file (spec.md §6) and returns a
// ready-to-use Tokenizer, transparently loading a cached automaton build
// when one exists and is fresh (internal/cache.LoadOrBuild), and
// persisting a fresh build for next time otherwise. Every cache failure
// is absorbed silently per spec.md §4.6/§7; correctness never depends on
// cache state.
func LoadFromFile(path string) (*Tokenizer, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.IoError, "reading vocabulary file", err)
	}

	vocabR, err := vocab.LoadJSON(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	v, err := vocab.New(vocabR, nil)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}

	c, err := cache.LoadOrBuild(path, content, func() (*automaton.Automaton, bpe.SplitTable, bpe.PrefixTable, [][]byte, error) {
		a, split, prefix, _, buildErr := buildTables(v)
		if buildErr != nil {
			return nil, nil, nil, nil, buildErr
		}
		return a, split, prefix, v.VocabR, nil
	})
	if err != nil {
		return nil, err
	}

	oracle := bpe.NewOracle(v, c.Split, c.Split.PairLookup())

	return &Tokenizer{
		vocab: v,
		enc:   bpe.NewEncoder(v, c.Automaton, c.Prefix, oracle),
		cache: c,
	}, nil
}

// Close releases resources tied to a cache-backed Tokenizer (the mmap
// region, if any). Safe to call on a Tokenizer built via New/Train, where
// it is a no-op.
func (t *Tokenizer) Close() error {
	if t.cache == nil {
		return nil
	}
	return t.cache.Close()
}

// Encode pre-tokenizes text into cl100k-class chunks (internal/pretok) and
// runs the backtrack encoder (internal/bpe) over each chunk independently
// -- merges never span a pre-tokenizer chunk boundary, matching the
// reference algorithm's data flow (spec.md §2).
func (t *Tokenizer) Encode(text string) ([]uint32, error) {
	if text == "" {
		return nil, nil
	}

	chunker, err := pretok.NewChunker(text)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: pre-tokenizing: %w", err)
	}

	var out []uint32
	for {
		chunk, ok := chunker.Next()
		if !ok {
			break
		}
		out = append(out, t.enc.Encode(chunk)...)
	}
	return out, nil
}

// Decode concatenates the byte sequences for ids -- byte-level BPE
// decoding is simple concatenation (spec.md §6).
func (t *Tokenizer) Decode(ids []uint32) []byte {
	return t.vocab.Decode(ids)
}

// SaveToFile writes the tokenizer's vocabulary to path in the JSON wire
// format (spec.md §6), tokens ordered by ascending rank. This saves the
// vocabulary only; a cache file for the automaton is written separately
// by internal/cache (LoadFromFile populates one automatically).
func (t *Tokenizer) SaveToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.IoError, "creating vocabulary file", err)
	}
	defer f.Close()

	if err := vocab.SaveJSON(f, t.vocab.VocabR); err != nil {
		return err
	}
	return nil
}

// Train runs the BPE trainer (internal/trainer) over texts and wraps the
// resulting vocabulary into a ready-to-use Tokenizer, with no cache file
// involved until a later SaveToFile/LoadFromFile round trip.
func Train(texts []string, targetVocabSize int, opts trainer.Options) (*Tokenizer, error) {
	vocabR, merges, err := trainer.Train(texts, targetVocabSize, opts)
	if err != nil {
		return nil, err
	}
	return New(vocabR, merges)
}
