package signer

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"golang.org/x/crypto/sha3"
)

var bitcoinParams = map[string]*chaincfg.Params{
	"mainnet": &chaincfg.MainNetParams,
	"bitcoin": &chaincfg.MainNetParams,
	"testnet": &chaincfg.TestNet3Params,
	"regtest": &chaincfg.RegressionNetParams,
	"signet":  &chaincfg.SigNetParams,
}

// BitcoinAddress returns the native segwit (P2WPKH) address of pub
func BitcoinAddress(pub *btcec.PublicKey, network string) (string, error) {
	params, ok := bitcoinParams[strings.ToLower(network)]
	if !ok {
		return "", fmt.Errorf("%w: %q has no bitcoin address format", ErrUnsupportedNetwork, network)
	}

	hash := btcutil.Hash160(pub.SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(hash, params)
	if err != nil {
		return "", fmt.Errorf("failed to build address: %w", err)
	}
	return addr.EncodeAddress(), nil
}

// EVMAddress returns the EIP-55 checksummed address of pub
func EVMAddress(pub *btcec.PublicKey) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub.SerializeUncompressed()[1:])
	lower := hex.EncodeToString(h.Sum(nil)[12:])

	h = sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	checksum := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' {
			continue
		}
		nibble := checksum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}
