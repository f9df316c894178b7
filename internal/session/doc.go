// Package session holds the short-lived state of a running vault manager.
//
// Cache is the single-slot PIN session: after a successful unlock it keeps
// the derived vault key for a fixed TTL so signing does not re-run PBKDF2.
// The window never slides; every use needs time left on the original unlock.
//
// AuthWindow is the credential-prompt session that gates auth-bound
// keystore keys. The two are independent.
//
// Expiry is evaluated lazily when a session is used; no timers run.
package session
