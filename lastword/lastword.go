// Package lastword recovers the final word of a 12-word BIP39
// mnemonic from its first 11 words.
//
// The 12 words encode 128 bits of entropy followed by a 4-bit
// checksum. The first 11 words fix 121 entropy bits; the last word
// holds the remaining 7 (the tail) and the checksum. Enumerating the
// 128 tails yields every phrase that completes the prefix.
package lastword

import (
	"crypto/sha256"
	"encoding/binary"
	"strings"

	"seedhammer.com/lastword/bip39"
)

const (
	// PrefixWords is the number of known words.
	PrefixWords = 11
	// TailBits is the number of entropy bits carried by the last word.
	TailBits = 7
	// NumCandidates is the number of possible last words.
	NumCandidates = 1 << TailBits

	wordBits     = 11
	checksumBits = wordBits - TailBits
	prefixBits   = PrefixWords * wordBits
	tailMask     = NumCandidates - 1
)

// Prefix is the packed entropy of the first 11 words.
type Prefix struct {
	words bip39.Mnemonic
	// hi and lo hold the 121 prefix bits, most significant first,
	// shifted left to leave the low TailBits of lo for the tail.
	hi, lo uint64
}

// Candidate is one completion of a prefix.
type Candidate struct {
	// Tail is the 7 entropy bits contributed by the last word.
	Tail int
	// Checksum is the 4-bit BIP39 checksum of the entropy.
	Checksum int
	// Word is the last word, Tail<<4 | Checksum.
	Word bip39.Word
	// Mnemonic is the complete 12-word mnemonic.
	Mnemonic bip39.Mnemonic
	// Valid reports whether Mnemonic passed independent
	// checksum validation.
	Valid bool
}

// Candidates is an enumeration of completions, ordered by
// ascending tail.
type Candidates []Candidate

// Label returns the last word.
func (c Candidate) Label() string {
	return bip39.LabelFor(c.Word)
}

// Phrase returns the complete space separated phrase.
func (c Candidate) Phrase() string {
	return c.Mnemonic.String()
}

// Recover looks up the 11 words, packs them and enumerates every
// completion. Any error aborts without partial results.
func Recover(words []string) (Candidates, error) {
	m, err := Lookup(words)
	if err != nil {
		return nil, err
	}
	p, err := Pack(m)
	if err != nil {
		return nil, err
	}
	return Enumerate(p)
}

// Lookup converts the 11 words to their wordlist indices.
func Lookup(words []string) (bip39.Mnemonic, error) {
	if len(words) != PrefixWords {
		return nil, &WordCountError{Count: len(words)}
	}
	m := make(bip39.Mnemonic, len(words))
	for i, word := range words {
		w, ok := bip39.Lookup(word)
		if !ok {
			return nil, &UnknownWordError{Word: word, Pos: i}
		}
		m[i] = w
	}
	return m, nil
}

// Pack concatenates the 11-bit indices of m into a 121-bit prefix.
func Pack(m bip39.Mnemonic) (Prefix, error) {
	if len(m) != PrefixWords {
		return Prefix{}, &WordCountError{Count: len(m)}
	}
	var hi, lo uint64
	n := 0
	for i, w := range m {
		if w < 0 || w >= bip39.NumWords {
			return Prefix{}, &EncodingError{Pos: i, Index: w}
		}
		hi = hi<<wordBits | lo>>(64-wordBits)
		lo = lo<<wordBits | uint64(w)
		n += wordBits
	}
	if n != prefixBits {
		return Prefix{}, &EncodingError{Bits: n}
	}
	hi = hi<<TailBits | lo>>(64-TailBits)
	lo <<= TailBits
	words := make(bip39.Mnemonic, len(m))
	copy(words, m)
	return Prefix{words: words, hi: hi, lo: lo}, nil
}

// Words returns a copy of the packed words.
func (p Prefix) Words() bip39.Mnemonic {
	m := make(bip39.Mnemonic, len(p.words))
	copy(m, p.words)
	return m
}

// Entropy returns the 128-bit entropy formed by the prefix followed
// by the low 7 bits of tail.
func (p Prefix) Entropy(tail int) [16]byte {
	var ent [16]byte
	binary.BigEndian.PutUint64(ent[:8], p.hi)
	binary.BigEndian.PutUint64(ent[8:], p.lo|uint64(tail&tailMask))
	return ent
}

// Enumerate returns the NumCandidates completions of p, one per
// tail in ascending order. Every candidate is checked with
// [Validate]; a failure is reported as a *ConsistencyError.
func Enumerate(p Prefix) (Candidates, error) {
	if len(p.words) != PrefixWords {
		return nil, &WordCountError{Count: len(p.words)}
	}
	cands := make(Candidates, 0, NumCandidates)
	for tail := 0; tail < NumCandidates; tail++ {
		ent := p.Entropy(tail)
		sum := sha256.Sum256(ent[:])
		check := int(sum[0] >> (8 - checksumBits))
		w := bip39.Word(tail<<checksumBits | check)
		m := make(bip39.Mnemonic, 0, PrefixWords+1)
		m = append(m, p.words...)
		m = append(m, w)
		c := Candidate{
			Tail:     tail,
			Checksum: check,
			Word:     w,
			Mnemonic: m,
		}
		c.Valid = Validate(c.Phrase())
		if !c.Valid {
			return nil, &ConsistencyError{Tail: tail, Phrase: c.Phrase()}
		}
		cands = append(cands, c)
	}
	return cands, nil
}

// Validate reports whether phrase is a 12-word mnemonic whose last
// word carries the checksum of its entropy. It decodes the phrase
// from scratch and shares no state with [Enumerate].
func Validate(phrase string) bool {
	fields := strings.Fields(phrase)
	if len(fields) != PrefixWords+1 {
		return false
	}
	m := make(bip39.Mnemonic, len(fields))
	for i, f := range fields {
		w, ok := bip39.Lookup(f)
		if !ok {
			return false
		}
		m[i] = w
	}
	ent, check := m.Split()
	return bip39.Checksum(ent) == check
}

// Valid returns the candidates that passed validation.
func (cs Candidates) Valid() Candidates {
	var valid Candidates
	for _, c := range cs {
		if c.Valid {
			valid = append(valid, c)
		}
	}
	return valid
}

// Select returns the valid candidate accepted by match. A nil match
// accepts every valid candidate. If no candidate is accepted, Select
// returns ErrNoCandidate. If several are accepted, Select returns the
// one with the lowest tail along with an *AmbiguousError.
func (cs Candidates) Select(match func(c Candidate) (bool, error)) (Candidate, error) {
	var selected Candidates
	for _, c := range cs.Valid() {
		if match != nil {
			ok, err := match(c)
			if err != nil {
				return Candidate{}, err
			}
			if !ok {
				continue
			}
		}
		selected = append(selected, c)
	}
	switch len(selected) {
	case 0:
		return Candidate{}, ErrNoCandidate
	case 1:
		return selected[0], nil
	}
	tails := make([]int, len(selected))
	for i, c := range selected {
		tails[i] = c.Tail
	}
	return selected[0], &AmbiguousError{Tails: tails}
}
