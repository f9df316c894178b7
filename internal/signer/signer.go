package signer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Mode selects the signature encoding
type Mode int

const (
	// ModeDER produces a DER-encoded ECDSA signature (Bitcoin, Stacks)
	ModeDER Mode = iota
	// ModeRecoverable produces r || s || v (EVM, RSK)
	ModeRecoverable
)

func (m Mode) String() string {
	switch m {
	case ModeDER:
		return "der"
	case ModeRecoverable:
		return "recoverable"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

const (
	DigestSize      = 32
	RecoverableSize = 65
	// recoveryOffset is added to the recovery id in the v byte
	recoveryOffset = 27
)

var (
	ErrInvalidDigest      = errors.New("digest must be 32 bytes")
	ErrUnsupportedNetwork = errors.New("unsupported network")
	ErrInvalidSignature   = errors.New("invalid signature")
)

var networkModes = map[string]Mode{
	"mainnet":        ModeDER,
	"bitcoin":        ModeDER,
	"testnet":        ModeDER,
	"regtest":        ModeDER,
	"signet":         ModeDER,
	"stacks":         ModeDER,
	"stacks-testnet": ModeDER,
	"rsk":            ModeRecoverable,
	"rsk-testnet":    ModeRecoverable,
	"rootstock":      ModeRecoverable,
	"ethereum":       ModeRecoverable,
	"evm":            ModeRecoverable,
	"sepolia":        ModeRecoverable,
}

// ModeForNetwork maps a network identifier to its signature mode
func ModeForNetwork(network string) (Mode, error) {
	mode, ok := networkModes[strings.ToLower(strings.TrimSpace(network))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedNetwork, network)
	}
	return mode, nil
}

// Signature is the result of Sign
type Signature struct {
	// Signature is DER bytes in ModeDER, r || s || v in ModeRecoverable
	Signature []byte
	// PublicKey is compressed in ModeDER, uncompressed in ModeRecoverable
	PublicKey []byte
	// RecID is set in ModeRecoverable only, and is 0 or 1
	RecID *int
}

// Sign signs a 32-byte digest with priv. Signing is deterministic (RFC 6979)
// and does not modify priv.
func Sign(priv *btcec.PrivateKey, digest []byte, mode Mode) (*Signature, error) {
	if len(digest) != DigestSize {
		return nil, ErrInvalidDigest
	}

	switch mode {
	case ModeDER:
		sig := ecdsa.Sign(priv, digest)
		return &Signature{
			Signature: sig.Serialize(),
			PublicKey: priv.PubKey().SerializeCompressed(),
		}, nil

	case ModeRecoverable:
		compact, err := ecdsa.SignCompact(priv, digest, false)
		if err != nil {
			return nil, fmt.Errorf("failed to sign: %w", err)
		}
		// compact is v || r || s with v = 27 + recid for uncompressed keys
		v := compact[0]
		out := make([]byte, RecoverableSize)
		copy(out, compact[1:])
		out[64] = v
		recID := int(v) - recoveryOffset
		return &Signature{
			Signature: out,
			PublicKey: priv.PubKey().SerializeUncompressed(),
			RecID:     &recID,
		}, nil

	default:
		return nil, fmt.Errorf("unknown signature mode %d", int(mode))
	}
}

// Verify checks a DER signature over digest against a serialized public key
func Verify(pubKey, digest, der []byte) (bool, error) {
	if len(digest) != DigestSize {
		return false, ErrInvalidDigest
	}
	pub, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false, fmt.Errorf("invalid public key: %w", err)
	}
	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return sig.Verify(digest, pub), nil
}

// Recover returns the public key that produced an r || s || v signature
func Recover(sig, digest []byte) (*btcec.PublicKey, error) {
	if len(digest) != DigestSize {
		return nil, ErrInvalidDigest
	}
	if len(sig) != RecoverableSize {
		return nil, fmt.Errorf("%w: want %d bytes", ErrInvalidSignature, RecoverableSize)
	}

	v := sig[64]
	if v < recoveryOffset {
		// Accept a bare recovery id as well
		v += recoveryOffset
	}
	compact := make([]byte, RecoverableSize)
	compact[0] = v
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return pub, nil
}
