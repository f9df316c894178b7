// Package crypto provides cryptographic operations for seedvault.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key, either derived from a PIN or held by the OS keyring
//   - 12-byte random nonce per encryption operation
//   - 16-byte tag appended to the ciphertext
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - caller-supplied salt (stored in the vault envelope)
//   - 200,000 iterations, fixed by the envelope format
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
