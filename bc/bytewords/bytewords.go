// Package bytewords implements the minimal form of the bytewords
// encoding described in [BCR-2020-012]. Each byte is written as the
// first and last letter of its word, and the data is followed by its
// CRC32 checksum.
//
// [BCR-2020-012]: https://github.com/BlockchainCommons/Research/blob/master/papers/bcr-2020-012-bytewords.md
package bytewords

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

const checksumLen = 4

// Encode data in minimal bytewords followed by its checksum.
func Encode(data []byte) string {
	var check [checksumLen]byte
	binary.BigEndian.PutUint32(check[:], crc32.ChecksumIEEE(data))
	buf := make([]byte, 0, 2*(len(data)+checksumLen))
	for _, b := range append(data[:len(data):len(data)], check[:]...) {
		buf = append(buf, abbrev[2*int(b)], abbrev[2*int(b)+1])
	}
	return string(buf)
}

// Decode minimal bytewords and verify the trailing checksum. Only
// lower case letters are accepted.
func Decode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, errors.New("bytewords: odd number of letters")
	}
	n := len(s) / 2
	if n < checksumLen {
		return nil, errors.New("bytewords: missing checksum")
	}
	dec := make([]byte, n)
	for i := range dec {
		b, ok := byteFor(s[2*i], s[2*i+1])
		if !ok {
			return nil, fmt.Errorf("bytewords: invalid word %q at position %d", s[2*i:2*i+2], i)
		}
		dec[i] = b
	}
	data, check := dec[:n-checksumLen], dec[n-checksumLen:]
	if binary.BigEndian.Uint32(check) != crc32.ChecksumIEEE(data) {
		return nil, errors.New("bytewords: checksum mismatch")
	}
	return data, nil
}

// words maps a (first, last) letter pair to its byte value plus one.
var words [26 * 26]uint16

func byteFor(first, last byte) (byte, bool) {
	if first < 'a' || first > 'z' || last < 'a' || last > 'z' {
		return 0, false
	}
	v := words[int(first-'a')*26+int(last-'a')]
	return byte(v - 1), v != 0
}

func init() {
	for i := 0; i < 256; i++ {
		first, last := abbrev[2*i]-'a', abbrev[2*i+1]-'a'
		words[int(first)*26+int(last)] = uint16(i + 1)
	}
}

// abbrev holds the first and last letters of the 256 words, from
// "able" (0x00) to "zoom" (0xff).
const abbrev = "aeadaoaxaaahamatayasbkbdbnbtbabsbebybgbwbbbzcmchcscfcycwcecackctcxclcpcndkdadsdidedtdrdndwdpdmdldyeheyeoeeecenemetesftfrfnfsfmfhfzfpfwfxfyfefgflfdgagegrgsgtglgwgdgygmgughgohfhghdhkhthphhhlhyhehnhsidiaieihiyioisinimjejzjnjtjljojsjpjkjykpkoktkskkknkgkekikblblalylflslrlplnltloldlelulklgmnmymhmemomumwmdmtmsmknlnyndnsntnnnenboyoeotoxonolospdptpkpypspmplpepfpaprqdqzrerprlrorhrdrkrfryrnrsrtsesasrssskswstspsosgsbsfsntotktitttdtetytltbtstptatnuyuoutueurvtvyvovlvevwvavdvswlwdwmwpwewywswtwnwzwfwkykynylyaytzszoztzczezm"
