// Package core provides the seedvault operations.
//
// Manager works on PIN-sealed seed envelopes:
//   - Unlock: Verify the PIN and cache the derived key for a fixed session
//   - Sign: Derive a BIP32 key and sign a digest (DER or recoverable r||s||v)
//   - Addresses: Render the default Bitcoin, EVM and Stacks accounts
//   - Seal/SealMnemonic: Encrypt an existing seed or BIP39 mnemonic
//
// Store is the secure item store. Items are encrypted with platform keys
// from the OS keyring; v2 items use a key that only works while the
// authentication window opened by Authenticate is valid. Reading a v1 item
// with requireBiometric migrates it to v2.
//
// Seed bytes, derived keys and intermediate BIP32 keys live in a per-call
// scope that is wiped on every exit path. Errors map onto Kind via KindOf.
package core
