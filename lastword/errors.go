package lastword

import (
	"errors"
	"fmt"
	"strings"

	"seedhammer.com/lastword/bip39"
)

// ErrNoCandidate is returned by [Candidates.Select] when no valid
// candidate is accepted. It means the input words or the hint are
// wrong, not that recovery failed.
var ErrNoCandidate = errors.New("lastword: no valid completion found")

// WordCountError reports an input of the wrong length.
type WordCountError struct {
	Count int
}

func (e *WordCountError) Error() string {
	return fmt.Sprintf("lastword: expected exactly %d words, got %d", PrefixWords, e.Count)
}

// UnknownWordError reports an input word missing from the BIP39
// English wordlist.
type UnknownWordError struct {
	Word string
	// Pos is the zero-based position of Word in the input.
	Pos int
}

func (e *UnknownWordError) Error() string {
	return fmt.Sprintf("lastword: word %d not in BIP39 English wordlist: %q", e.Pos+1, e.Word)
}

// EncodingError reports a violated invariant of the packed prefix:
// a word index outside the wordlist or a wrong bit length. It
// indicates a bug in the caller or in Pack.
type EncodingError struct {
	// Bits is the packed length, or zero for an index error.
	Bits int
	// Pos is the zero-based position of the word with index Index.
	Pos   int
	Index bip39.Word
}

func (e *EncodingError) Error() string {
	if e.Bits == 0 {
		return fmt.Sprintf("lastword: internal error: word %d has index %d outside the wordlist", e.Pos+1, e.Index)
	}
	return fmt.Sprintf("lastword: internal error: packed %d bits, expected %d", e.Bits, prefixBits)
}

// ConsistencyError reports a candidate whose phrase failed the
// independent checksum validation. It indicates a bug.
type ConsistencyError struct {
	Tail   int
	Phrase string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("lastword: internal error: candidate for tail %d failed validation: %q", e.Tail, e.Phrase)
}

// AmbiguousError reports that more than one valid candidate was
// selected.
type AmbiguousError struct {
	Tails []int
}

func (e *AmbiguousError) Error() string {
	tails := make([]string, len(e.Tails))
	for i, t := range e.Tails {
		tails[i] = fmt.Sprint(t)
	}
	return fmt.Sprintf("lastword: %d candidates selected (tails %s)", len(e.Tails), strings.Join(tails, ", "))
}
