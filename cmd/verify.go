package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/illarion/seedvault/internal/signer"
)

// Verify checks a signature produced by 'seedvault sign'. DER signatures are
// verified against the public key; recoverable ones are recovered and
// compared with it.
func Verify(network, hash, signature, pubKey string) {
	mode, err := signer.ModeForNetwork(network)
	if err != nil {
		HandleError(err)
	}
	digest := decodeHexOrExit("hash", hash)
	sig := decodeHexOrExit("signature", signature)
	pub := decodeHexOrExit("pubkey", pubKey)

	var ok bool
	switch mode {
	case signer.ModeDER:
		ok, err = signer.Verify(pub, digest, sig)
		if err != nil {
			HandleError(err)
		}
	case signer.ModeRecoverable:
		want, err := btcec.ParsePubKey(pub)
		if err != nil {
			HandleError(fmt.Errorf("invalid public key: %w", err))
		}
		got, err := signer.Recover(sig, digest)
		if err != nil {
			HandleError(err)
		}
		ok = got.IsEqual(want)
	}

	if !ok {
		fmt.Println("✗ Signature does not match")
		os.Exit(1)
	}
	fmt.Println("✓ Signature valid")
}

func decodeHexOrExit(name, s string) []byte {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(b) == 0 {
		fmt.Fprintf(os.Stderr, "Error: --%s must be non-empty hex\n", name)
		os.Exit(1)
	}
	return b
}
