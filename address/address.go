// package address derives receive and change addresses from
// single-sig output descriptors.
package address

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"seedhammer.com/lastword/bc/urtypes"
)

// Receive returns the address at <account>/0/index.
func Receive(desc urtypes.OutputDescriptor, index uint32) (string, error) {
	return address(desc, index, false)
}

// Change returns the address at <account>/1/index.
func Change(desc urtypes.OutputDescriptor, index uint32) (string, error) {
	return address(desc, index, true)
}

var errUnsupported = errors.New("unsupported descriptor")

func address(desc urtypes.OutputDescriptor, index uint32, change bool) (string, error) {
	network := desc.Key.Network
	if network == nil {
		return "", fmt.Errorf("address: missing network: %w", errUnsupported)
	}
	pub, err := derivePubKey(desc.Key, index, change)
	if err != nil {
		return "", fmt.Errorf("address: %w", err)
	}
	var addr btcutil.Address
	switch desc.Script {
	case urtypes.P2PKH:
		pkHash := btcutil.Hash160(pub.SerializeCompressed())
		addr, err = btcutil.NewAddressPubKeyHash(pkHash, network)
	case urtypes.P2WPKH, urtypes.P2SH_P2WPKH:
		pkHash := btcutil.Hash160(pub.SerializeCompressed())
		addr, err = btcutil.NewAddressWitnessPubKeyHash(pkHash, network)
	case urtypes.P2TR:
		tkey := txscript.ComputeTaprootKeyNoScript(pub)
		addr, err = btcutil.NewAddressTaproot(schnorr.SerializePubKey(tkey), network)
	default:
		return "", fmt.Errorf("address: script: %s: %w", desc.Script, errUnsupported)
	}
	if err != nil {
		return "", fmt.Errorf("address: %w", err)
	}
	if desc.Script == urtypes.P2SH_P2WPKH {
		script, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return "", fmt.Errorf("address: %w", err)
		}
		addr, err = btcutil.NewAddressScriptHash(script, network)
		if err != nil {
			return "", fmt.Errorf("address: %w", err)
		}
	}
	return addr.String(), nil
}

func derivePubKey(k urtypes.KeyDescriptor, index uint32, change bool) (*secp256k1.PublicKey, error) {
	branch := uint32(0)
	if change {
		branch = 1
	}
	xpub := k.ExtendedKey()
	for _, id := range []uint32{branch, index} {
		child, err := xpub.Derive(id)
		if err != nil {
			return nil, err
		}
		xpub = child
	}
	return xpub.ECPubKey()
}
