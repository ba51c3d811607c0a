// Package wallet opens the BIP32 wallet behind a mnemonic and matches
// it against public data such as a fingerprint, an extended public
// key, an account UR or an address.
package wallet

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"seedhammer.com/lastword/address"
	"seedhammer.com/lastword/bc/ur"
	"seedhammer.com/lastword/bc/urtypes"
	"seedhammer.com/lastword/bip32"
	"seedhammer.com/lastword/bip39"
)

// Wallet is the BIP32 master key derived from a mnemonic and
// passphrase.
type Wallet struct {
	Network     *chaincfg.Params
	Fingerprint uint32

	master   *hdkeychain.ExtendedKey
	accounts map[accountKey]urtypes.OutputDescriptor
}

type accountKey struct {
	script urtypes.Script
	path   string
}

// Open derives the master key of m.
func Open(m bip39.Mnemonic, passphrase string, network *chaincfg.Params) (*Wallet, error) {
	if !m.Valid() {
		return nil, bip39.ErrInvalidChecksum
	}
	seed := bip39.MnemonicSeed(m, passphrase)
	mk, err := hdkeychain.NewMaster(seed, network)
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	mfp, err := bip32.Fingerprint(mk)
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	return &Wallet{
		Network:     network,
		Fingerprint: mfp,
		master:      mk,
		accounts:    make(map[accountKey]urtypes.OutputDescriptor),
	}, nil
}

// Account returns the descriptor of the first account for script,
// derived along the standard path.
func (w *Wallet) Account(script urtypes.Script) (urtypes.OutputDescriptor, error) {
	if script == urtypes.UnknownScript {
		return urtypes.OutputDescriptor{}, errors.New("wallet: unknown script")
	}
	return w.AccountAt(script, script.DerivationPath(w.Network))
}

// AccountAt is like Account but derives the account key along path.
func (w *Wallet) AccountAt(script urtypes.Script, path urtypes.Path) (urtypes.OutputDescriptor, error) {
	if script == urtypes.UnknownScript {
		return urtypes.OutputDescriptor{}, errors.New("wallet: unknown script")
	}
	key := accountKey{script, path.String()}
	if desc, ok := w.accounts[key]; ok {
		return desc, nil
	}
	mfp, xpub, err := bip32.Derive(w.master, path)
	if err != nil {
		return urtypes.OutputDescriptor{}, fmt.Errorf("wallet: %s: %w", path, err)
	}
	pub, err := xpub.ECPubKey()
	if err != nil {
		return urtypes.OutputDescriptor{}, fmt.Errorf("wallet: %s: %w", path, err)
	}
	desc := urtypes.OutputDescriptor{
		Script: script,
		Key: urtypes.KeyDescriptor{
			Network:           w.Network,
			MasterFingerprint: mfp,
			DerivationPath:    path,
			KeyData:           pub.SerializeCompressed(),
			ChainCode:         xpub.ChainCode(),
			ParentFingerprint: xpub.ParentFingerprint(),
		},
	}
	w.accounts[key] = desc
	return desc, nil
}

// Owns reports whether addr is among the first gap receive or change
// addresses of the account for the script type of addr.
func (w *Wallet) Owns(addr btcutil.Address, gap int) (bool, error) {
	if !addr.IsForNet(w.Network) {
		return false, nil
	}
	desc, err := w.Account(scriptFor(addr))
	if err != nil {
		return false, err
	}
	want := addr.String()
	for i := 0; i < gap; i++ {
		for _, derive := range []func(urtypes.OutputDescriptor, uint32) (string, error){address.Receive, address.Change} {
			got, err := derive(desc, uint32(i))
			if err != nil {
				return false, err
			}
			if got == want {
				return true, nil
			}
		}
	}
	return false, nil
}

// scriptFor guesses the script of an address. Pay-to-script-hash
// addresses are assumed to wrap a P2WPKH script.
func scriptFor(addr btcutil.Address) urtypes.Script {
	switch addr.(type) {
	case *btcutil.AddressPubKeyHash:
		return urtypes.P2PKH
	case *btcutil.AddressScriptHash:
		return urtypes.P2SH_P2WPKH
	case *btcutil.AddressWitnessPubKeyHash:
		return urtypes.P2WPKH
	case *btcutil.AddressTaproot:
		return urtypes.P2TR
	default:
		return urtypes.UnknownScript
	}
}

func addressType(addr btcutil.Address) string {
	switch addr.(type) {
	case *btcutil.AddressWitnessScriptHash:
		return "P2WSH"
	case *btcutil.AddressPubKey:
		return "P2PK"
	default:
		return fmt.Sprintf("%T", addr)
	}
}

// Hint is public data that identifies a wallet.
type Hint interface {
	Match(w *Wallet) (bool, error)
	String() string
}

// ParseHint parses a master key fingerprint in hex, an extended
// public key, a ur:crypto-output or ur:crypto-hdkey, or an address.
// Addresses are matched against the first gap receive and change
// addresses.
func ParseHint(s string, network *chaincfg.Params, gap int) (Hint, error) {
	s = strings.TrimSpace(s)
	if len(s) == 8 {
		if b, err := hex.DecodeString(s); err == nil {
			return fingerprintHint(binary.BigEndian.Uint32(b)), nil
		}
	}
	if strings.HasPrefix(strings.ToLower(s), "ur:") {
		return parseURHint(s, network)
	}
	if k, err := hdkeychain.NewKeyFromString(s); err == nil {
		if k.IsPrivate() {
			return nil, errors.New("wallet: hint is a private key")
		}
		if !k.IsForNet(network) {
			return nil, fmt.Errorf("wallet: extended key is not for %s", network.Name)
		}
		pub, err := k.ECPubKey()
		if err != nil {
			return nil, fmt.Errorf("wallet: %w", err)
		}
		return &keyHint{
			depth:     int(k.Depth()),
			keyData:   pub.SerializeCompressed(),
			chainCode: k.ChainCode(),
			name:      "extended key " + s,
		}, nil
	}
	addr, err := btcutil.DecodeAddress(s, network)
	if err != nil {
		return nil, fmt.Errorf("wallet: hint %q is not a fingerprint, extended key, UR or address", s)
	}
	if !addr.IsForNet(network) {
		return nil, fmt.Errorf("wallet: address %s is not for %s", s, network.Name)
	}
	if scriptFor(addr) == urtypes.UnknownScript {
		return nil, fmt.Errorf("wallet: %s address %s is not supported", addressType(addr), s)
	}
	if gap < 1 {
		return nil, fmt.Errorf("wallet: invalid address gap %d", gap)
	}
	return &addressHint{addr: addr, gap: gap}, nil
}

func parseURHint(s string, network *chaincfg.Params) (Hint, error) {
	typ, enc, err := ur.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	v, err := urtypes.Parse(typ, enc)
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	var k urtypes.KeyDescriptor
	switch v := v.(type) {
	case urtypes.OutputDescriptor:
		k = v.Key
	case urtypes.KeyDescriptor:
		k = v
	}
	if k.Network != network {
		return nil, fmt.Errorf("wallet: %s key is for %s, not %s", typ, k.Network.Name, network.Name)
	}
	h := &keyHint{
		mfp:       k.MasterFingerprint,
		depth:     -1,
		keyData:   k.KeyData,
		chainCode: k.ChainCode,
		name:      fmt.Sprintf("%s key %s", typ, k),
	}
	if len(k.DerivationPath) > 0 {
		h.path = k.DerivationPath
		h.depth = len(k.DerivationPath)
	}
	return h, nil
}

type fingerprintHint uint32

func (h fingerprintHint) Match(w *Wallet) (bool, error) {
	return w.Fingerprint == uint32(h), nil
}

func (h fingerprintHint) String() string {
	return fmt.Sprintf("fingerprint %.8x", uint32(h))
}

// keyHint is a public key and chain code with as much of its origin
// as is known.
type keyHint struct {
	// mfp is the master fingerprint, or zero if unknown.
	mfp uint32
	// path is the derivation path, or nil if unknown.
	path urtypes.Path
	// depth is -1 if unknown.
	depth     int
	keyData   []byte
	chainCode []byte
	name      string
}

// Match derives the key along its path when known. Otherwise it
// compares the master key at depth 0 and the standard accounts at
// other depths.
func (h *keyHint) Match(w *Wallet) (bool, error) {
	if h.mfp != 0 && h.mfp != w.Fingerprint {
		return false, nil
	}
	if h.path != nil {
		_, xpub, err := bip32.Derive(w.master, h.path)
		if err != nil {
			return false, fmt.Errorf("wallet: %s: %w", h.path, err)
		}
		return h.equal(xpub)
	}
	if h.depth <= 0 {
		if ok, err := h.equal(w.master); ok || err != nil || h.depth == 0 {
			return ok, err
		}
	}
	for _, s := range urtypes.Scripts {
		desc, err := w.Account(s)
		if err != nil {
			return false, err
		}
		if bytes.Equal(h.keyData, desc.Key.KeyData) && bytes.Equal(h.chainCode, desc.Key.ChainCode) {
			return true, nil
		}
	}
	return false, nil
}

func (h *keyHint) equal(k *hdkeychain.ExtendedKey) (bool, error) {
	pub, err := k.ECPubKey()
	if err != nil {
		return false, err
	}
	return bytes.Equal(h.keyData, pub.SerializeCompressed()) && bytes.Equal(h.chainCode, k.ChainCode()), nil
}

func (h *keyHint) String() string {
	return h.name
}

type addressHint struct {
	addr btcutil.Address
	gap  int
}

func (h *addressHint) Match(w *Wallet) (bool, error) {
	return w.Owns(h.addr, h.gap)
}

func (h *addressHint) String() string {
	return "address " + h.addr.String()
}
