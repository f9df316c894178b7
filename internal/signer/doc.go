// Package signer produces secp256k1 signatures in the encodings different
// chains expect.
//
// Bitcoin-style networks (mainnet, testnet, stacks, ...) get a DER-encoded
// ECDSA signature and the compressed public key. EVM-style networks (rsk,
// ethereum, evm, ...) get a 65-byte r || s || v signature, the uncompressed
// public key and the recovery id (v - 27).
//
// All signatures are deterministic (RFC 6979).
package signer
