// Package storage provides the BBolt database interface for seedvault.
//
// Database structure uses two buckets:
//   - config: schema version, timestamps, the vault id and the sealed
//     seed envelope (already PIN-encrypted)
//   - items: encrypted record strings keyed by item name
//
// Records are already encrypted by the item store before they reach this
// package; storage never sees plaintext.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
