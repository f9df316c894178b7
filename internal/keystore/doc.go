// Package keystore provides platform-held symmetric keys for the item store.
//
// Keys are random AES-256 keys kept in the OS keyring (Secret Service,
// macOS Keychain, Windows Credential Manager) under an alias. A key created
// with requireAuth only works while the supplied Authorizer reports a valid
// credential session; otherwise Seal and Open fail with ErrAuthRequired.
package keystore
