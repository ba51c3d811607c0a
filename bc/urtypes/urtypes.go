// Package urtypes encodes and decodes the single-sig account
// descriptors of [BCR-2020-010] (crypto-output) and the keys of
// [BCR-2020-007] (crypto-hdkey).
//
// [BCR-2020-007]: https://github.com/BlockchainCommons/Research/blob/master/papers/bcr-2020-007-hdkey.md
// [BCR-2020-010]: https://github.com/BlockchainCommons/Research/blob/master/papers/bcr-2020-010-output-desc.md
package urtypes

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/fxamacker/cbor/v2"
)

// OutputDescriptor is a single-sig account.
type OutputDescriptor struct {
	Script Script
	Key    KeyDescriptor
}

// KeyDescriptor is an extended public key with its origin.
type KeyDescriptor struct {
	Network           *chaincfg.Params
	MasterFingerprint uint32
	DerivationPath    Path
	KeyData           []byte
	ChainCode         []byte
	ParentFingerprint uint32
}

// Path is a BIP32 derivation path from the master key.
type Path []uint32

type Script int

const (
	UnknownScript Script = iota
	P2PKH
	P2SH_P2WPKH
	P2WPKH
	P2TR
)

// Scripts lists the supported scripts.
var Scripts = []Script{P2PKH, P2SH_P2WPKH, P2WPKH, P2TR}

type scriptInfo struct {
	name    string
	title   string
	purpose uint32
	// tags wrap the key in a crypto-output, outermost first.
	tags []uint64
}

var scriptInfos = map[Script]scriptInfo{
	P2PKH:       {"p2pkh", "Legacy (P2PKH)", 44, []uint64{tagPKH}},
	P2SH_P2WPKH: {"p2sh-p2wpkh", "Nested Segwit (P2SH-P2WPKH)", 49, []uint64{tagSH, tagWPKH}},
	P2WPKH:      {"p2wpkh", "Segwit (P2WPKH)", 84, []uint64{tagWPKH}},
	P2TR:        {"p2tr", "Taproot (P2TR)", 86, []uint64{tagTR}},
}

func (s Script) String() string {
	if info, ok := scriptInfos[s]; ok {
		return info.title
	}
	return "Unknown"
}

// ParseScript parses a script name such as "p2wpkh" or
// "p2sh-p2wpkh".
func ParseScript(name string) (Script, error) {
	name = strings.ToLower(name)
	for _, s := range Scripts {
		if scriptInfos[s].name == name {
			return s, nil
		}
	}
	return UnknownScript, fmt.Errorf("urtypes: unknown script %q", name)
}

// DerivationPath returns the path of the first account for the
// script, m/purpose'/coin'/0'. It panics if the script is unknown.
func (s Script) DerivationPath(network *chaincfg.Params) Path {
	info, ok := scriptInfos[s]
	if !ok {
		panic("unknown script")
	}
	const h = hdkeychain.HardenedKeyStart
	return Path{h + info.purpose, h + network.HDCoinType, h + 0}
}

func (p Path) String() string {
	var b strings.Builder
	b.WriteByte('m')
	for _, c := range p {
		b.WriteByte('/')
		if c >= hdkeychain.HardenedKeyStart {
			b.WriteString(strconv.FormatUint(uint64(c-hdkeychain.HardenedKeyStart), 10))
			b.WriteByte('h')
		} else {
			b.WriteString(strconv.FormatUint(uint64(c), 10))
		}
	}
	return b.String()
}

// ExtendedKey returns the key in the form of an extended public key.
func (k KeyDescriptor) ExtendedKey() *hdkeychain.ExtendedKey {
	var parent [4]byte
	binary.BigEndian.PutUint32(parent[:], k.ParentFingerprint)
	var child uint32
	if n := len(k.DerivationPath); n > 0 {
		child = k.DerivationPath[n-1]
	}
	depth := uint8(len(k.DerivationPath))
	return hdkeychain.NewExtendedKey(k.Network.HDPublicKeyID[:], k.KeyData, k.ChainCode, parent[:], depth, child, false)
}

func (k KeyDescriptor) String() string {
	return k.ExtendedKey().String()
}

// Encode the descriptor as a crypto-output. It panics if the script
// is unknown.
func (o OutputDescriptor) Encode() []byte {
	info, ok := scriptInfos[o.Script]
	if !ok {
		panic("unknown script")
	}
	var v any = cbor.Tag{Number: tagHDKey, Content: o.Key.cbor()}
	for _, t := range slices.Backward(info.tags) {
		v = cbor.Tag{Number: t, Content: v}
	}
	enc, err := encMode.Marshal(v)
	if err != nil {
		panic(err)
	}
	return enc
}

// Parse decodes a crypto-output into an OutputDescriptor or a
// crypto-hdkey into a KeyDescriptor.
func Parse(typ string, enc []byte) (any, error) {
	switch typ {
	case "crypto-output":
		desc, err := parseOutput(enc)
		if err != nil {
			return nil, fmt.Errorf("urtypes: crypto-output: %w", err)
		}
		return desc, nil
	case "crypto-hdkey":
		k, err := parseKey(enc)
		if err != nil {
			return nil, fmt.Errorf("urtypes: crypto-hdkey: %w", err)
		}
		return k, nil
	}
	return nil, fmt.Errorf("urtypes: unsupported type %q", typ)
}

func parseOutput(enc []byte) (OutputDescriptor, error) {
	var tags []uint64
	for {
		var t cbor.RawTag
		if err := decMode.Unmarshal(enc, &t); err != nil {
			break
		}
		tags = append(tags, t.Number)
		enc = t.Content
	}
	n := len(tags)
	if n == 0 || tags[n-1] != tagHDKey {
		return OutputDescriptor{}, errors.New("not a single key descriptor")
	}
	for _, s := range Scripts {
		if !slices.Equal(scriptInfos[s].tags, tags[:n-1]) {
			continue
		}
		k, err := parseKey(enc)
		if err != nil {
			return OutputDescriptor{}, err
		}
		return OutputDescriptor{Script: s, Key: k}, nil
	}
	return OutputDescriptor{}, fmt.Errorf("unsupported script tags %v", tags[:n-1])
}

func parseKey(enc []byte) (KeyDescriptor, error) {
	var k cborKey
	if err := decMode.Unmarshal(enc, &k); err != nil {
		return KeyDescriptor{}, err
	}
	switch {
	case k.IsPrivate:
		return KeyDescriptor{}, errors.New("private keys are not accepted")
	case k.UseInfo.Type != 0:
		return KeyDescriptor{}, fmt.Errorf("coin type %d is not bitcoin", k.UseInfo.Type)
	case len(k.Children.Components) > 0:
		return KeyDescriptor{}, errors.New("child derivations are not supported")
	case len(k.KeyData) != 33:
		return KeyDescriptor{}, fmt.Errorf("%d byte key, expected 33", len(k.KeyData))
	case len(k.ChainCode) != 32:
		return KeyDescriptor{}, fmt.Errorf("%d byte chain code, expected 32", len(k.ChainCode))
	}
	var network *chaincfg.Params
	switch k.UseInfo.Network {
	case networkMain:
		network = &chaincfg.MainNetParams
	case networkTest:
		network = &chaincfg.TestNet3Params
	default:
		return KeyDescriptor{}, fmt.Errorf("unknown network %d", k.UseInfo.Network)
	}
	path, err := pathFromComponents(k.Origin.Components)
	if err != nil {
		return KeyDescriptor{}, err
	}
	if d := int(k.Origin.Depth); d != 0 && d != len(path) {
		return KeyDescriptor{}, fmt.Errorf("origin depth %d for a path of length %d", d, len(path))
	}
	return KeyDescriptor{
		Network:           network,
		MasterFingerprint: k.Origin.Fingerprint,
		DerivationPath:    path,
		KeyData:           k.KeyData,
		ChainCode:         k.ChainCode,
		ParentFingerprint: k.ParentFingerprint,
	}, nil
}

// pathFromComponents converts (index, hardened) pairs to a path.
func pathFromComponents(comps []any) (Path, error) {
	if len(comps)%2 != 0 {
		return nil, errors.New("unpaired path component")
	}
	var p Path
	for i := 0; i < len(comps); i += 2 {
		idx, ok := comps[i].(uint64)
		if !ok || idx >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("unsupported path component %v", comps[i])
		}
		hardened, ok := comps[i+1].(bool)
		if !ok {
			return nil, fmt.Errorf("invalid hardened flag %v", comps[i+1])
		}
		if hardened {
			idx += hdkeychain.HardenedKeyStart
		}
		p = append(p, uint32(idx))
	}
	return p, nil
}

func (p Path) components() []any {
	comps := make([]any, 0, 2*len(p))
	for _, c := range p {
		hardened := c >= hdkeychain.HardenedKeyStart
		if hardened {
			c -= hdkeychain.HardenedKeyStart
		}
		comps = append(comps, c, hardened)
	}
	return comps
}

func (k KeyDescriptor) cbor() cborKey {
	network := networkMain
	if k.Network != &chaincfg.MainNetParams {
		network = networkTest
	}
	return cborKey{
		KeyData:           k.KeyData,
		ChainCode:         k.ChainCode,
		UseInfo:           cborCoinInfo{Network: network},
		Origin:            cborKeypath{Components: k.DerivationPath.components(), Fingerprint: k.MasterFingerprint},
		ParentFingerprint: k.ParentFingerprint,
	}
}

const (
	networkMain = 0
	networkTest = 1
)

type cborKey struct {
	IsMaster          bool         `cbor:"1,keyasint,omitempty"`
	IsPrivate         bool         `cbor:"2,keyasint,omitempty"`
	KeyData           []byte       `cbor:"3,keyasint"`
	ChainCode         []byte       `cbor:"4,keyasint,omitempty"`
	UseInfo           cborCoinInfo `cbor:"5,keyasint,omitempty"`
	Origin            cborKeypath  `cbor:"6,keyasint,omitempty"`
	Children          cborKeypath  `cbor:"7,keyasint,omitempty"`
	ParentFingerprint uint32       `cbor:"8,keyasint,omitempty"`
}

type cborCoinInfo struct {
	Type    uint32 `cbor:"1,keyasint,omitempty"`
	Network int    `cbor:"2,keyasint,omitempty"`
}

type cborKeypath struct {
	Components  []any  `cbor:"1,keyasint,omitempty"`
	Fingerprint uint32 `cbor:"2,keyasint,omitempty"`
	Depth       uint8  `cbor:"3,keyasint,omitempty"`
}

const (
	tagHDKey    = 303
	tagKeypath  = 304
	tagCoinInfo = 305

	tagSH   = 400
	tagPKH  = 403
	tagWPKH = 404
	tagTR   = 409
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	tags := cbor.NewTagSet()
	for _, t := range []struct {
		typ  reflect.Type
		num  uint64
		opts cbor.TagOptions
	}{
		{reflect.TypeOf(cborKey{}), tagHDKey, cbor.TagOptions{DecTag: cbor.DecTagOptional}},
		{reflect.TypeOf(cborKeypath{}), tagKeypath, cbor.TagOptions{DecTag: cbor.DecTagOptional, EncTag: cbor.EncTagRequired}},
		{reflect.TypeOf(cborCoinInfo{}), tagCoinInfo, cbor.TagOptions{DecTag: cbor.DecTagOptional, EncTag: cbor.EncTagRequired}},
	} {
		if err := tags.Add(t.opts, t.typ, t.num); err != nil {
			panic(err)
		}
	}
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncModeWithTags(tags)
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecModeWithTags(tags)
	if err != nil {
		panic(err)
	}
}
