// package bip39 represents and converts bitcoin bip39 mnemonic phrases.
package bip39

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

type Word int

type Mnemonic []Word

const NumWords = Word(1 << wordBits)

const wordBits = 11

var ErrInvalidChecksum = errors.New("bip39: invalid checksum")

func LabelFor(w Word) string {
	if !w.valid() {
		return ""
	}
	return words[w]
}

// Lookup returns the index of word. Only exact matches are
// accepted.
func Lookup(word string) (Word, bool) {
	w, ok := index[word]
	if !ok {
		return -1, false
	}
	return w, true
}

func (w Word) valid() bool {
	return w >= 0 && w < NumWords
}

// Valid reports whether the mnemonic checksum is correct.
func (m Mnemonic) Valid() bool {
	// Panics in splitMnemonic.
	if len(m) == 0 || len(m)%3 != 0 {
		return false
	}
	for _, w := range m {
		if !w.valid() {
			return false
		}
	}
	ent, _ := splitMnemonic(m)
	last := m[len(m)-1]
	return ChecksumWord(ent) == last
}

// Split decodes the mnemonic into its entropy and checksum bits,
// regardless of whether the checksum is correct. It panics if the
// length of m is not a multiple of 3.
func (m Mnemonic) Split() (entropy []byte, checksum byte) {
	return splitMnemonic(m)
}

// FixChecksum returns a copy of the mnemonic with a correct checksum.
// This method defeats the purpose of the bip39 checksum, so it should
// only be used for generating new mnemonics.
func (m Mnemonic) FixChecksum() Mnemonic {
	m2 := make(Mnemonic, len(m))
	copy(m2, m)
	ent, _ := splitMnemonic(m2)
	m2[len(m2)-1] = ChecksumWord(ent)
	return m2
}

// Entropy returns the entropy represented by the mnemonic. It
// panics if the mnemonic is invalid.
func (m Mnemonic) Entropy() []byte {
	if !m.Valid() {
		panic("invalid mnemonic")
	}
	ent, _ := splitMnemonic(m)
	return ent
}

func (m Mnemonic) String() string {
	s := new(strings.Builder)
	for _, w := range m {
		if s.Len() > 0 {
			s.WriteByte(' ')
		}
		s.WriteString(LabelFor(w))
	}
	return s.String()
}

func splitMnemonic(m Mnemonic) (entropy []byte, checksum byte) {
	ent := big.NewInt(0)
	shift11 := big.NewInt(1 << wordBits)
	for _, w := range m {
		ent.Mul(ent, shift11)
		ent.Or(ent, big.NewInt(int64(w)))
	}
	if len(m)%3 != 0 {
		panic("mnemonic length not divisible with 3")
	}
	checkBits := len(m) / 3
	check := big.NewInt(0).And(ent, big.NewInt(1<<checkBits-1)).Int64()
	ent.Div(ent, big.NewInt(1<<checkBits))
	// Pad entropy bytes because BIP39 checksum is sensitive to
	// leading zeros.
	entBits := len(m)*wordBits - checkBits
	entBytes := ent.Bytes()
	padding := bytes.Repeat([]byte{0}, entBits/8-len(entBytes))
	entBytes = append(padding, entBytes...)
	return entBytes, byte(check)
}

// Checksum returns the len(entropy)/4 checksum bits of entropy:
// the leading bits of its SHA-256 hash.
func Checksum(entropy []byte) byte {
	check := sha256.Sum256(entropy)
	checkBits := len(entropy) / 4
	if checkBits > 8 {
		panic("entropy too long")
	}
	return check[0] >> (8 - checkBits)
}

func ChecksumWord(entropy []byte) Word {
	checkBits := len(entropy) / 4
	last := entropy[len(entropy)-1]
	w := Word(last)<<checkBits | Word(Checksum(entropy))
	return w % NumWords
}

func MnemonicSeed(m Mnemonic, password string) []byte {
	var sentence strings.Builder
	for i, w := range m {
		sentence.WriteString(LabelFor(w))
		if i < len(m)-1 {
			sentence.WriteByte(' ')
		}
	}
	return pbkdf2.Key([]byte(sentence.String()), []byte("mnemonic"+password), 2048, 64, sha512.New)
}

func New(entropy []byte) Mnemonic {
	if len(entropy) < 16 || 32 < len(entropy) {
		panic("invalid entropy length")
	}
	if len(entropy)%4 != 0 {
		panic("odd entropy length")
	}
	ent := big.NewInt(0).SetBytes(entropy)
	check := Checksum(entropy)
	// Shift entropy and append checksum bits.
	checkBits := len(entropy) / 4
	ent.Mul(ent, big.NewInt(1<<checkBits))
	ent.Or(ent, big.NewInt(int64(check)))
	shift11 := big.NewInt(1 << wordBits)
	mask := big.NewInt(0).Add(shift11, big.NewInt(-1))
	w := big.NewInt(0)
	m := make(Mnemonic, (len(entropy)*8+checkBits)/wordBits)
	for i := range m {
		w.And(ent, mask)
		ent.Div(ent, shift11)
		idx := w.Int64()
		m[len(m)-1-i] = Word(idx)
	}
	if !m.Valid() {
		panic("unreachable")
	}
	return m
}

// ParseMnemonic parses a space separated mnemonic of exact
// wordlist words and verifies its checksum.
func ParseMnemonic(mnemonic string) (Mnemonic, error) {
	words := strings.Split(mnemonic, " ")
	m := make(Mnemonic, len(words))
	for i, w := range words {
		idx, ok := Lookup(w)
		if !ok {
			return nil, fmt.Errorf("bip39: unknown word: %q", w)
		}
		m[i] = idx
	}
	if !m.Valid() {
		return nil, ErrInvalidChecksum
	}
	return m, nil
}

func RandomWord() Word {
	var u16 [2]byte
	if _, err := rand.Read(u16[:]); err != nil {
		panic(err)
	}
	// Modulo reduction of a random number ok because the reduced
	// range (2^11) divides the full range (2^16). But be paranoid.
	const n = int(NumWords)
	if math.MaxUint16%n != n-1 {
		panic("biased random distribution")
	}
	return Word(binary.BigEndian.Uint16(u16[:])) % Word(n)
}
