package bpe

import (
	"github.com/gobpe/tokenizer/internal/bpool"
	"github.com/gobpe/tokenizer/internal/vocab"
)

// Encoder is the backtracking BPE encoder (C7): it drives the automaton's
// longest-match scan forward, validating each candidate token against its
// predecessor with the pair-validity oracle, falling back to a shorter
// automaton match or backtracking into the previous token when validity
// fails. The result is byte-identical to running canonical greedy BPE merge
// simulation on the same text, without ever materializing the merge queue.
type Encoder struct {
	v      *vocab.Vocabulary
	auto   Matcher
	prefix PrefixTable
	oracle *Oracle
}

// NewEncoder builds an Encoder over a vocabulary, its automaton, the
// prefix table (C5), and the pair-validity oracle (C6).
func NewEncoder(v *vocab.Vocabulary, auto Matcher, prefix PrefixTable, oracle *Oracle) *Encoder {
	return &Encoder{v: v, auto: auto, prefix: prefix, oracle: oracle}
}

// Encode segments text into the canonical sequence of token ids. The
// returned slice is owned by the caller; scratch state (bit set, token
// buffer) is drawn from internal/bpool and released before return.
func (e *Encoder) Encode(text []byte) []uint32 {
	n := len(text)
	if n == 0 {
		return nil
	}

	bs := bpool.GetBitSet(n + 1)
	defer bpool.PutBitSet(bs)
	tb := bpool.GetTokenBuf()
	defer bpool.PutTokenBuf(tb)
	tokens := tb.IDs[:0]

	pos := 0
	nextToken, nextLen, nextOK := e.auto.LongestMatch(text, pos)

	for nextOK || pos != n {
		if !nextOK {
			// A byte-level vocabulary always covers every byte, so this
			// should be unreachable; bail rather than loop forever if the
			// vocabulary's base-byte invariant is somehow violated.
			break
		}

		token, tokenLen := nextToken, nextLen
		end := pos + tokenLen

		hasLast := len(tokens) > 0
		var last uint32
		if hasLast {
			last = tokens[len(tokens)-1]
		}

		if bs.IsSet(end) && (!hasLast || e.oracle.IsValidTokenPair(last, token)) {
			tokens = append(tokens, token)
			pos = end
			nextToken, nextLen, nextOK = e.auto.LongestMatch(text, pos)
			continue
		}

		if shorter := e.prefix[token]; shorter != NoPrefixMatch {
			nextToken = shorter
			nextLen = len(e.v.VocabR[shorter])
			continue
		}

		bs.Clear(pos)
		if !hasLast {
			break
		}
		popped := tokens[len(tokens)-1]
		tokens = tokens[:len(tokens)-1]
		pos -= len(e.v.VocabR[popped])
		nextToken, nextLen, nextOK = popped, len(e.v.VocabR[popped]), true
	}

	out := make([]uint32, len(tokens))
	copy(out, tokens)
	tb.IDs = tokens
	return out
}
