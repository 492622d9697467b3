// Package automaton implements the double-array Aho-Corasick automaton
// (spec.md C2-C4): a trie over the vocabulary augmented with failure links
// and arranged into a flat double array for O(1) transitions via
// child = base[s] XOR label.
package automaton

// NoOutput marks a state that does not complete any pattern.
const NoOutput = 0

// State is one double-array record. Root is always state 0; state 0's own
// base is never the XOR target of any child, since index 0 is reserved for
// the root before arrangement begins.
type State struct {
	Base      uint32 // 0 means "no children"
	Check     byte   // the label that led a parent to this state
	Fail      uint32 // Aho-Corasick failure link, 0 (root) if none
	OutputPos uint32 // index into Outputs, 0 means "no output here"
}

// Automaton is immutable after Build; safe for concurrent readers.
type Automaton struct {
	states  []State
	outputs []uint32 // outputs[0] is an unused sentinel slot
}

// NumStates reports the number of allocated double-array slots (including
// unused ones created by bucket growth).
func (a *Automaton) NumStates() int { return len(a.states) }

// States exposes the raw double-array records, e.g. for the cache codec.
func (a *Automaton) States() []State { return a.states }

// Outputs exposes the raw outputs array, e.g. for the cache codec.
func (a *Automaton) Outputs() []uint32 { return a.outputs }

// FromParts reconstructs an Automaton from previously persisted arrays
// (used by the mmap cache loader, which owns the backing memory).
func FromParts(states []State, outputs []uint32) *Automaton {
	return &Automaton{states: states, outputs: outputs}
}

// child returns the destination state for (s, label) and whether that
// transition is an explicit trie edge (never a failure-link hop).
func (a *Automaton) child(s uint32, label byte) (uint32, bool) {
	base := a.states[s].Base
	if base == 0 {
		return 0, false
	}
	idx := base ^ uint32(label)
	if int(idx) >= len(a.states) {
		return 0, false
	}
	if a.states[idx].Check != label {
		return 0, false
	}
	// idx 0 is the reserved root slot and can never be a real child.
	if idx == 0 {
		return 0, false
	}
	return idx, true
}

// LongestMatch walks from the root following only explicit trie children
// (never failure links) starting at text[start:], recording the output id
// at every visited state, and returns the deepest one recorded -- the
// leftmost-longest vocabulary token beginning exactly at start.
func (a *Automaton) LongestMatch(text []byte, start int) (id uint32, length int, ok bool) {
	state := uint32(0)
	bestID := uint32(0)
	bestLen := 0
	haveMatch := false

	if op := a.states[state].OutputPos; op != NoOutput {
		bestID, bestLen, haveMatch = a.outputs[op], 0, true
	}

	for i := start; i < len(text); i++ {
		next, has := a.child(state, text[i])
		if !has {
			break
		}
		state = next
		if op := a.states[state].OutputPos; op != NoOutput {
			bestID = a.outputs[op]
			bestLen = i - start + 1
			haveMatch = true
		}
	}

	if !haveMatch || bestLen == 0 {
		return 0, 0, false
	}
	return bestID, bestLen, true
}

// OverlappingMatches scans forward from start, following failure links
// whenever no explicit child exists (standard multi-pattern Aho-Corasick),
// and appends every matched token id encountered -- including the outputs
// reachable via the failure-link suffix chain at each visited position.
// Not called by the encoder or the table builders; only this package's
// tests use it.
func (a *Automaton) OverlappingMatches(text []byte, start int, out []uint32) []uint32 {
	state := uint32(0)
	for i := start; i < len(text); i++ {
		label := text[i]
		for {
			if next, has := a.child(state, label); has {
				state = next
				break
			}
			if state == 0 {
				break
			}
			state = a.states[state].Fail
		}
		out = a.collectOutputs(state, out)
	}
	return out
}

// collectOutputs walks the failure-link chain from s, appending every
// output found, shallowest match last (s's own output first).
func (a *Automaton) collectOutputs(s uint32, out []uint32) []uint32 {
	for {
		if op := a.states[s].OutputPos; op != NoOutput {
			out = append(out, a.outputs[op])
		}
		if s == 0 {
			return out
		}
		s = a.states[s].Fail
	}
}
