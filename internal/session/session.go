package session

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/awnumar/memguard"
)

// DefaultTTL is how long an unlocked session may sign without the PIN
const DefaultTTL = 5 * time.Minute

var (
	ErrNoSession    = errors.New("no active session")
	ErrExpired      = errors.New("session expired")
	ErrSaltMismatch = errors.New("session belongs to a different vault")
)

// Option configures a Cache or AuthWindow
type Option func(*clock)

type clock struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *clock) {
		c.now = now
	}
}

func newClock(opts []Option) clock {
	c := clock{now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Cache holds at most one derived vault key for a fixed time window.
// The key is kept sealed in a memguard enclave between uses.
type Cache struct {
	mu          sync.Mutex
	clock       clock
	ttl         time.Duration
	key         *memguard.Enclave
	fingerprint []byte
	expiresAt   time.Time
}

// New creates an empty cache whose sessions last ttl
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		clock: newClock(opts),
		ttl:   ttl,
	}
}

// TTL returns the fixed session duration
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Store replaces the session with key, bound to salt. Store takes ownership
// of key: the slice is wiped once it is sealed. It returns the expiry.
func (c *Cache) Store(key, salt []byte) time.Time {
	sealed := memguard.NewEnclave(key)
	fp := Fingerprint(salt)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.key = sealed
	c.fingerprint = fp
	c.expiresAt = c.clock.now().Add(c.ttl)
	return c.expiresAt
}

// Key returns the cached key for the vault identified by salt. The caller
// must Destroy the returned buffer. Errors, in order of precedence:
// ErrNoSession, ErrSaltMismatch, ErrExpired.
func (c *Cache) Key(salt []byte) (*memguard.LockedBuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fingerprint == nil {
		return nil, ErrNoSession
	}
	if subtle.ConstantTimeCompare(c.fingerprint, Fingerprint(salt)) != 1 {
		return nil, ErrSaltMismatch
	}
	if !c.clock.now().Before(c.expiresAt) || c.key == nil {
		// Drop the key but remember the vault so callers still see
		// ErrExpired rather than ErrNoSession.
		c.key = nil
		return nil, ErrExpired
	}

	buf, err := c.key.Open()
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// ExpiresAt reports the current session expiry, if a live session exists
func (c *Cache) ExpiresAt() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key == nil || !c.clock.now().Before(c.expiresAt) {
		return time.Time{}, false
	}
	return c.expiresAt, true
}

// Clear drops the session unconditionally
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.key = nil
	c.fingerprint = nil
	c.expiresAt = time.Time{}
}

// Fingerprint identifies a vault by its KDF salt
func Fingerprint(salt []byte) []byte {
	sum := sha256.Sum256(salt)
	return sum[:]
}
