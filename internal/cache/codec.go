// Package cache implements the automaton's on-disk binary cache (C9):
// a magic/version-tagged, little-endian, mmap-friendly encoding of the
// double-array state table plus (for the "full" variant) the split
// table, prefix table, and vocabulary bytes, so a process restart can
// skip rebuilding the automaton from scratch.
package cache

import (
	"encoding/binary"
	"fmt"

	"github.com/gobpe/tokenizer/internal/automaton"
	"github.com/gobpe/tokenizer/internal/bpe"
	"github.com/gobpe/tokenizer/internal/errs"
	"github.com/gobpe/tokenizer/internal/vocab"
)

// magic identifies a gobpe automaton cache file: ASCII "GBPE".
const magic = uint32('G') | uint32('B')<<8 | uint32('P')<<16 | uint32('E')<<24

// Version tags the header's layout. versionBase carries only the
// automaton; versionFull additionally carries the split table, prefix
// table, and vocabulary bytes a façade needs to avoid replaying
// BuildSplitTable/BuildPrefixTable on every load.
const (
	versionBase uint32 = 1
	versionFull uint32 = 2
)

// stateRecordSize is the packed, padding-free byte size of one
// automaton.State record on disk: base(4) + check(1) + fail(4) +
// output_pos(4), per spec.md §4.6's wire layout. automaton.State
// itself is laid out for Go's convenience (and so carries struct
// padding), so the codec encodes/decodes field by field rather than
// reinterpreting the in-memory struct slice directly.
const stateRecordSize = 4 + 1 + 4 + 4

// pairRecordSize is one split-table entry: two uint32 ids.
const pairRecordSize = 4 + 4

// Cache holds a loaded automaton cache, plus the optional full-variant
// tables. VocabR, when non-nil, holds slices borrowed directly from
// the memory-mapped file (true zero-copy for the variable-length
// region); Close must be called once the caller is done with it.
type Cache struct {
	Automaton *automaton.Automaton
	Split     bpe.SplitTable
	Prefix    bpe.PrefixTable
	VocabR    [][]byte

	closer func() error
}

// Close releases the cache's backing memory map, if any. Safe to call
// on a Cache that wasn't loaded via mmap (e.g. one just built in
// memory by a fallback path).
func (c *Cache) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func putUint32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], v)
}

func getUint32(buf []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(buf[off : off+4])
}

// encodeBase serializes the versionBase layout: header + states +
// outputs.
func encodeBase(a *automaton.Automaton) []byte {
	states := a.States()
	outputs := a.Outputs()

	headerLen := 4 + 4 + 4 + 4
	size := headerLen + len(states)*stateRecordSize + len(outputs)*4
	buf := make([]byte, size)

	off := 0
	putUint32(buf, off, magic)
	off += 4
	putUint32(buf, off, versionBase)
	off += 4
	putUint32(buf, off, uint32(len(states)))
	off += 4
	putUint32(buf, off, uint32(len(outputs)))
	off += 4

	for _, s := range states {
		putUint32(buf, off, s.Base)
		buf[off+4] = s.Check
		putUint32(buf, off+5, s.Fail)
		putUint32(buf, off+9, s.OutputPos)
		off += stateRecordSize
	}
	for _, o := range outputs {
		putUint32(buf, off, o)
		off += 4
	}
	return buf
}

// encodeFull serializes the versionFull layout: the base layout plus
// a split table, a prefix table, and length-prefixed vocabulary byte
// blobs.
func encodeFull(a *automaton.Automaton, split bpe.SplitTable, prefix bpe.PrefixTable, vocabR [][]byte) []byte {
	states := a.States()
	outputs := a.Outputs()

	headerLen := 4 + 4 + 4 + 4 + 4 + 4 + 4 // magic,version,states_len,outputs_len,split_len,prefix_len,vocab_len
	vocabBytesLen := 0
	for _, bs := range vocabR {
		vocabBytesLen += 4 + len(bs) // u32 length prefix + bytes
	}

	size := headerLen +
		len(states)*stateRecordSize +
		len(outputs)*4 +
		len(split)*pairRecordSize +
		len(prefix)*4 +
		vocabBytesLen
	buf := make([]byte, size)

	off := 0
	putUint32(buf, off, magic)
	off += 4
	putUint32(buf, off, versionFull)
	off += 4
	putUint32(buf, off, uint32(len(states)))
	off += 4
	putUint32(buf, off, uint32(len(outputs)))
	off += 4
	putUint32(buf, off, uint32(len(split)))
	off += 4
	putUint32(buf, off, uint32(len(prefix)))
	off += 4
	putUint32(buf, off, uint32(len(vocabR)))
	off += 4

	for _, s := range states {
		putUint32(buf, off, s.Base)
		buf[off+4] = s.Check
		putUint32(buf, off+5, s.Fail)
		putUint32(buf, off+9, s.OutputPos)
		off += stateRecordSize
	}
	for _, o := range outputs {
		putUint32(buf, off, o)
		off += 4
	}
	for _, p := range split {
		putUint32(buf, off, p.Left)
		putUint32(buf, off+4, p.Right)
		off += pairRecordSize
	}
	for _, p := range prefix {
		putUint32(buf, off, p)
		off += 4
	}
	for _, bs := range vocabR {
		putUint32(buf, off, uint32(len(bs)))
		off += 4
		copy(buf[off:], bs)
		off += len(bs)
	}
	return buf
}

// decode parses buf (the full contents of a cache file, typically a
// memory-mapped region the caller owns) into a Cache. Byte slices for
// the full variant's vocabulary are sub-slices of buf itself -- no
// copy -- so callers must keep buf alive (and call Cache.Close, which
// unmaps it) for as long as the returned Cache is in use.
func decode(buf []byte) (*Cache, error) {
	const minHeader = 16
	if len(buf) < minHeader {
		return nil, errs.Wrap(errs.CacheInvalid, "truncated cache header", nil)
	}
	if getUint32(buf, 0) != magic {
		return nil, errs.Wrap(errs.CacheInvalid, "bad magic", nil)
	}
	version := getUint32(buf, 4)
	statesLen := getUint32(buf, 8)
	outputsLen := getUint32(buf, 12)

	switch version {
	case versionBase:
		return decodeBase(buf, statesLen, outputsLen)
	case versionFull:
		return decodeFull(buf, statesLen, outputsLen)
	default:
		return nil, errs.Wrap(errs.CacheInvalid, fmt.Sprintf("unsupported cache version %d", version), nil)
	}
}

func decodeBase(buf []byte, statesLen, outputsLen uint32) (*Cache, error) {
	off := 16
	need := off + int(statesLen)*stateRecordSize + int(outputsLen)*4
	if len(buf) < need {
		return nil, errs.Wrap(errs.CacheInvalid, "truncated cache body", nil)
	}

	states := make([]automaton.State, statesLen)
	for i := range states {
		states[i] = automaton.State{
			Base:      getUint32(buf, off),
			Check:     buf[off+4],
			Fail:      getUint32(buf, off+5),
			OutputPos: getUint32(buf, off+9),
		}
		off += stateRecordSize
	}
	outputs := make([]uint32, outputsLen)
	for i := range outputs {
		outputs[i] = getUint32(buf, off)
		off += 4
	}

	return &Cache{Automaton: automaton.FromParts(states, outputs)}, nil
}

func decodeFull(buf []byte, statesLen, outputsLen uint32) (*Cache, error) {
	if len(buf) < 28 {
		return nil, errs.Wrap(errs.CacheInvalid, "truncated full-variant header", nil)
	}
	splitLen := getUint32(buf, 16)
	prefixLen := getUint32(buf, 20)
	vocabLen := getUint32(buf, 24)

	off := 28
	need := off + int(statesLen)*stateRecordSize + int(outputsLen)*4 +
		int(splitLen)*pairRecordSize + int(prefixLen)*4
	if len(buf) < need {
		return nil, errs.Wrap(errs.CacheInvalid, "truncated cache body", nil)
	}

	states := make([]automaton.State, statesLen)
	for i := range states {
		states[i] = automaton.State{
			Base:      getUint32(buf, off),
			Check:     buf[off+4],
			Fail:      getUint32(buf, off+5),
			OutputPos: getUint32(buf, off+9),
		}
		off += stateRecordSize
	}
	outputs := make([]uint32, outputsLen)
	for i := range outputs {
		outputs[i] = getUint32(buf, off)
		off += 4
	}
	split := make(bpe.SplitTable, splitLen)
	for i := range split {
		split[i] = vocab.Pair{Left: getUint32(buf, off), Right: getUint32(buf, off+4)}
		off += pairRecordSize
	}
	prefix := make(bpe.PrefixTable, prefixLen)
	for i := range prefix {
		prefix[i] = getUint32(buf, off)
		off += 4
	}

	vocabR := make([][]byte, vocabLen)
	for i := range vocabR {
		if off+4 > len(buf) {
			return nil, errs.Wrap(errs.CacheInvalid, "truncated vocab blob length", nil)
		}
		n := int(getUint32(buf, off))
		off += 4
		if off+n > len(buf) {
			return nil, errs.Wrap(errs.CacheInvalid, "truncated vocab blob bytes", nil)
		}
		vocabR[i] = buf[off : off+n : off+n] // borrowed, zero-copy slice into buf
		off += n
	}

	return &Cache{
		Automaton: automaton.FromParts(states, outputs),
		Split:     split,
		Prefix:    prefix,
		VocabR:    vocabR,
	}, nil
}
