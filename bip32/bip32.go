// package bip32 contains helper functions for operating on bitcoin bip32
// extended keys.
package bip32

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"seedhammer.com/lastword/bc/urtypes"
)

func Derive(mk *hdkeychain.ExtendedKey, path urtypes.Path) (mfp uint32, xpub *hdkeychain.ExtendedKey, err error) {
	key := mk
	for i, p := range path {
		key, err = key.Derive(p)
		if err != nil {
			return
		}
		if i == 0 {
			mfp = key.ParentFingerprint()
		}
	}
	if len(path) == 0 {
		mfp, err = Fingerprint(mk)
		if err != nil {
			return
		}
	}
	xpub, err = key.Neuter()
	return
}

// Fingerprint computes the fingerprint of a key, the first 4 bytes
// of the HASH160 of its compressed public key.
func Fingerprint(k *hdkeychain.ExtendedKey) (uint32, error) {
	pub, err := k.ECPubKey()
	if err != nil {
		return 0, err
	}
	h := btcutil.Hash160(pub.SerializeCompressed())
	return binary.BigEndian.Uint32(h[:4]), nil
}

// ParsePath parses a derivation path such as m/84h/0h/0h. Hardened
// elements may be marked with h, H or '.
func ParsePath(path string) (urtypes.Path, error) {
	elems := strings.Split(path, "/")
	if elems[0] != "m" {
		return nil, fmt.Errorf("bip32: path %q does not start with m", path)
	}
	p := urtypes.Path{}
	for _, e := range elems[1:] {
		offset := uint32(0)
		if n := len(e); n > 0 && (e[n-1] == 'h' || e[n-1] == 'H' || e[n-1] == '\'') {
			e = e[:n-1]
			offset = hdkeychain.HardenedKeyStart
		}
		idx, err := strconv.ParseUint(e, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("bip32: invalid path element %q in %q", e, path)
		}
		p = append(p, uint32(idx)+offset)
	}
	return p, nil
}
