package hd

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// Key is a private extended key
type Key struct {
	ext *hdkeychain.ExtendedKey
}

// NewMaster generates the BIP32 master key for seed. Seeds must be between
// 16 and 64 bytes. The seed slice is not retained.
func NewMaster(seed []byte) (*Key, error) {
	ext, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to derive master key: %w", err)
	}
	return &Key{ext: ext}, nil
}

// Derive walks path from k. Each intermediate key is zeroed once its child
// exists; k itself is left to the caller. An empty path returns k.
func (k *Key) Derive(path Path) (*Key, error) {
	current := k.ext
	for i, seg := range path {
		child, err := current.Derive(seg.ChildIndex())
		if current != k.ext {
			current.Zero()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to derive %s at depth %d: %w", path, i+1, err)
		}
		current = child
	}
	if current == k.ext {
		return k, nil
	}
	return &Key{ext: current}, nil
}

// PrivateKey returns the secp256k1 private key. The caller must Zero it.
func (k *Key) PrivateKey() (*btcec.PrivateKey, error) {
	return k.ext.ECPrivKey()
}

// PublicKey returns the secp256k1 public key
func (k *Key) PublicKey() (*btcec.PublicKey, error) {
	return k.ext.ECPubKey()
}

// String returns the base58 extended key (xprv). It exposes key material
// and exists for test vectors and debugging only.
func (k *Key) String() string {
	return k.ext.String()
}

// Zero clears the key material
func (k *Key) Zero() {
	k.ext.Zero()
}
