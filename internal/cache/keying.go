package cache

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/gobpe/tokenizer/internal/automaton"
	"github.com/gobpe/tokenizer/internal/bpe"
	"github.com/gobpe/tokenizer/internal/tlog"
)

// DefaultDir returns the directory automaton caches are stored under:
// $GOBPE_CACHE_DIR if set, else os.TempDir()/gobpe-cache, per spec.md
// §6's "Environment" entry.
func DefaultDir() string {
	if d := os.Getenv("GOBPE_CACHE_DIR"); d != "" {
		return d
	}
	return filepath.Join(os.TempDir(), "gobpe-cache")
}

// KeyForBytes derives a cache key from the source vocabulary's
// content, per spec.md §4.6 "keyed by a content-based hash of the
// source vocabulary path (or its contents)". xxhash64 is fast enough
// to hash even a large vocabulary file on every load without the key
// becoming the bottleneck.
func KeyForBytes(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

// PathFor builds the cache file path for a given key under dir.
func PathFor(dir, key string) string {
	return filepath.Join(dir, key+".gbpecache")
}

// BuildFunc produces a fresh automaton (and, for the full variant,
// its split/prefix tables and vocabulary bytes) when no usable cache
// exists.
type BuildFunc func() (a *automaton.Automaton, split bpe.SplitTable, prefix bpe.PrefixTable, vocabR [][]byte, err error)

// LoadOrBuild loads the cache for vocabPath's content if present and
// not stale, otherwise calls build and best-effort persists the
// result for next time. Every cache-layer failure (missing file, I/O
// error, bad magic/version, truncation, a source file newer than its
// cache) is silent and falls through to build: spec.md §4.6's
// guarantee that correctness never depends on cache state.
func LoadOrBuild(vocabPath string, vocabContent []byte, build BuildFunc) (*Cache, error) {
	dir := DefaultDir()
	key := KeyForBytes(vocabContent)
	path := PathFor(dir, key)

	if c, ok := tryLoad(path, vocabPath); ok {
		return c, nil
	}

	a, split, prefix, vocabR, err := build()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err == nil {
		var saveErr error
		if split != nil {
			saveErr = SaveFull(path, a, split, prefix, vocabR)
		} else {
			saveErr = SaveBase(path, a)
		}
		if saveErr != nil {
			tlog.Warn("cache_save_failed", saveErr)
		}
	}

	return &Cache{Automaton: a, Split: split, Prefix: prefix, VocabR: vocabR}, nil
}

// tryLoad attempts to load and validate a usable cache at path,
// returning ok=false on any problem (including staleness relative to
// vocabPath's modification time) without ever returning an error --
// every failure here is meant to be swallowed by the caller's rebuild
// fallback.
func tryLoad(path, vocabPath string) (*Cache, bool) {
	cacheInfo, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if vocabPath != "" {
		if srcInfo, err := os.Stat(vocabPath); err == nil {
			if srcInfo.ModTime().After(cacheInfo.ModTime()) {
				tlog.Warn("cache_stale", nil)
				return nil, false
			}
		}
	}

	c, err := Load(path)
	if err != nil {
		tlog.Warn("cache_load_failed", err)
		return nil, false
	}
	return c, true
}
