package cache

import (
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"

	"github.com/gobpe/tokenizer/internal/automaton"
	"github.com/gobpe/tokenizer/internal/bpe"
	"github.com/gobpe/tokenizer/internal/errs"
)

// SaveBase writes the versionBase layout (automaton only) to path.
func SaveBase(path string, a *automaton.Automaton) error {
	return writeFile(path, encodeBase(a))
}

// SaveFull writes the versionFull layout (automaton plus split table,
// prefix table, and vocabulary bytes) to path.
func SaveFull(path string, a *automaton.Automaton, split bpe.SplitTable, prefix bpe.PrefixTable, vocabR [][]byte) error {
	return writeFile(path, encodeFull(a, split, prefix, vocabR))
}

// writeFile persists buf to path via create-new-file-then-rename (spec.md
// §5 "write-out uses a create-new-file + rename pattern so concurrent
// loaders either see the previous valid cache or the new one, never a
// partial file"): the temp file lives in path's own directory so the
// final rename is same-filesystem and therefore atomic, and a concurrent
// Load mmapping path mid-write can never observe a truncated body.
func writeFile(path string, buf []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errs.Wrap(errs.IoError, "creating temp cache file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return errs.Wrap(errs.IoError, "writing temp cache file", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.IoError, "closing temp cache file", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return errs.Wrap(errs.IoError, "renaming temp cache file into place", err)
	}
	return nil
}

// Load memory-maps path read-only and decodes its header and records.
// The returned Cache's full-variant vocabulary slices are borrowed
// directly from the mapped region (§4.6's "return borrowed slices...
// without copying"); the caller must call Cache.Close once done.
//
// Any failure -- missing file, bad magic, version mismatch, truncated
// body -- is returned as a CacheInvalid-wrapped error; per spec.md
// §4.6 this is always meant to be handled by falling back to a
// rebuild, never surfaced to a façade caller as fatal.
func Load(path string) (*Cache, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.CacheInvalid, "opening cache file", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, errs.Wrap(errs.CacheInvalid, "stat cache file", err)
	}
	if fi.Size() == 0 {
		return nil, errs.Wrap(errs.CacheInvalid, "empty cache file", nil)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errs.Wrap(errs.CacheInvalid, "mmap cache file", err)
	}

	c, err := decode(m)
	if err != nil {
		_ = m.Unmap()
		return nil, err
	}
	c.closer = m.Unmap
	return c, nil
}
