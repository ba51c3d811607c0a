// Package seedqr converts mnemonics to and from the digits of a
// [SeedQR].
//
// [SeedQR]: https://github.com/SeedSigner/seedsigner/blob/dev/docs/seed_qr/README.md
package seedqr

import (
	"fmt"
	"strconv"

	"seedhammer.com/lastword/bip39"
)

// digitsPerWord is the width of a zero padded word index.
const digitsPerWord = 4

// QR returns the SeedQR digits of m. It panics if m is invalid.
func QR(m bip39.Mnemonic) []byte {
	if !m.Valid() {
		panic("invalid mnemonic")
	}
	qr := make([]byte, 0, digitsPerWord*len(m))
	for _, w := range m {
		qr = fmt.Appendf(qr, "%0*d", digitsPerWord, w)
	}
	return qr
}

// Decode splits SeedQR digits into word indices. The checksum is not
// verified, so a partial mnemonic decodes too.
func Decode(digits string) (bip39.Mnemonic, error) {
	if len(digits) == 0 || len(digits)%digitsPerWord != 0 {
		return nil, fmt.Errorf("seedqr: %d digits is not a multiple of %d", len(digits), digitsPerWord)
	}
	m := make(bip39.Mnemonic, 0, len(digits)/digitsPerWord)
	for len(digits) > 0 {
		group := digits[:digitsPerWord]
		digits = digits[digitsPerWord:]
		idx, err := strconv.ParseUint(group, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("seedqr: invalid digits %q", group)
		}
		if idx >= uint64(bip39.NumWords) {
			return nil, fmt.Errorf("seedqr: word %d: index %d out of range", len(m)+1, idx)
		}
		m = append(m, bip39.Word(idx))
	}
	return m, nil
}

// IsDigits reports whether s looks like SeedQR digits rather than
// words.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
