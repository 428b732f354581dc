package template

import "strings"

// symbolAlphabet holds the letters symbols are built from, upper case first.
const symbolAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Symbols allocates short identifiers for generated element variables and
// block closures. Identifiers never repeat within one Symbols value. The
// zero value is ready to use; each compilation owns its own Symbols.
//
// The sequence is B..Z, a..z, then zA..zz, zzA..zzz and so on: the last
// letter steps through the alphabet and, once it runs out, a new trailing
// letter is appended. It is not a positional counter, but it keeps the
// first fifty-one symbols to a single character.
type Symbols struct {
	cur []byte
}

// Next returns a previously unseen identifier.
func (s *Symbols) Next() string {
	if len(s.cur) == 0 {
		s.cur = append(s.cur, symbolAlphabet[0])
	}
	last := len(s.cur) - 1
	next := strings.IndexByte(symbolAlphabet, s.cur[last]) + 1
	if next >= len(symbolAlphabet) {
		s.cur = append(s.cur, symbolAlphabet[0])
	} else {
		s.cur[last] = symbolAlphabet[next]
	}
	return string(s.cur)
}

// Reset returns s to its initial state.
func (s *Symbols) Reset() {
	s.cur = s.cur[:0]
}
