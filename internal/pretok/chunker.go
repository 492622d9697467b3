// Package pretok implements the cl100k-class pre-tokenizer (C10): a
// regex chunker that splits raw text into the word/number/punctuation/
// whitespace runs BPE merging is applied within, never across.
package pretok

import (
	"sync"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// pattern is the cl100k-class alternation: contractions, an optional
// leading non-letter/digit before a letter run, short digit runs,
// punctuation runs (with trailing newlines folded in), a newline run,
// then the two whitespace alternatives whose order matters --
// "whitespace not followed by non-whitespace" must be tried before
// plain "whitespace", or the former never gets a chance to match.
// `\s+(?!\S)` needs a negative lookahead RE2 can't express, hence
// regexp2.
const pattern = `(?i:['’]s|['’]t|['’]re|['’]ve|['’]m|['’]ll|['’]d)|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]|\s+(?!\S)|\s+`

var (
	compileOnce sync.Once
	compiled    *regexp2.Regexp
	compileErr  error
)

// pretokRegex compiles the package pattern once. regexp2's RE2 mode
// (RE2-subset syntax, for engines that want a guaranteed-linear-time
// fallback) can't host this pattern's `(?!\S)` lookahead, so this
// compiles in the engine's native mode, which can.
func pretokRegex() (*regexp2.Regexp, error) {
	compileOnce.Do(func() {
		compiled, compileErr = regexp2.Compile(pattern, regexp2.None)
	})
	return compiled, compileErr
}

// Chunker walks text emitting one pre-tokenization chunk at a time.
// Malformed UTF-8 and lone surrogate halves decode to U+FFFD
// (utf8.RuneError), which belongs to no Unicode letter or number
// category, so \p{L}/\p{N} never match it and it falls through to the
// punctuation/whitespace alternatives. regexp2 reports match positions
// in runes, so Next maps them back to byte offsets and slices the
// original text: each malformed byte is one rune to the regex and comes
// back out unchanged, and the chunks always join to the input bytes.
type Chunker struct {
	re   *regexp2.Regexp
	text string
	m    *regexp2.Match

	runePos, bytePos int // rune and byte offset of the end of the last chunk
}

// NewChunker compiles (once, package-wide) the pre-tokenizer pattern
// and positions a cursor at text's first chunk.
func NewChunker(text string) (*Chunker, error) {
	re, err := pretokRegex()
	if err != nil {
		return nil, err
	}
	m, err := re.FindStringMatch(text)
	if err != nil {
		return nil, err
	}
	return &Chunker{re: re, text: text, m: m}, nil
}

// Next returns the next chunk's bytes and true, or (nil, false) once
// the input is exhausted.
func (c *Chunker) Next() ([]byte, bool) {
	if c.m == nil {
		return nil, false
	}
	advanceTo := func(runeOff int) {
		for c.runePos < runeOff {
			_, size := utf8.DecodeRuneInString(c.text[c.bytePos:])
			c.bytePos += size
			c.runePos++
		}
	}
	advanceTo(c.m.Index)
	start := c.bytePos
	advanceTo(c.m.Index + c.m.Length)
	chunk := c.text[start:c.bytePos]
	next, err := c.re.FindNextMatch(c.m)
	if err != nil {
		next = nil
	}
	c.m = next
	return []byte(chunk), true
}

// ChunkAll runs a Chunker to completion and collects every chunk --
// convenient for callers (tests, the trainer's word-collection step)
// that want the whole split at once rather than iterating.
func ChunkAll(text string) ([][]byte, error) {
	c, err := NewChunker(text)
	if err != nil {
		return nil, err
	}
	var out [][]byte
	for {
		chunk, ok := c.Next()
		if !ok {
			break
		}
		out = append(out, chunk)
	}
	return out, nil
}
