// Package hd implements BIP32 hierarchical deterministic key derivation
// over btcutil's hdkeychain, with textual path parsing.
package hd
