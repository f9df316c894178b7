package session

import (
	"sync"
	"time"
)

const (
	DefaultAuthDuration = 300 * time.Second
	MinAuthDuration     = 10 * time.Second
)

// AuthWindow tracks how long a successful credential prompt stays valid.
// It gates auth-bound keystore keys and is independent of Cache.
type AuthWindow struct {
	mu         sync.Mutex
	clock      clock
	validUntil time.Time
}

// NewAuthWindow creates a closed window
func NewAuthWindow(opts ...Option) *AuthWindow {
	return &AuthWindow{clock: newClock(opts)}
}

// Grant opens the window for d, clamped to at least MinAuthDuration.
// A zero d means DefaultAuthDuration.
func (w *AuthWindow) Grant(d time.Duration) time.Time {
	if d == 0 {
		d = DefaultAuthDuration
	}
	if d < MinAuthDuration {
		d = MinAuthDuration
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.validUntil = w.clock.now().Add(d)
	return w.validUntil
}

// Valid reports whether the window is open now
func (w *AuthWindow) Valid() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.clock.now().Before(w.validUntil)
}

// ValidUntil returns the current expiry; zero when never granted or cleared
func (w *AuthWindow) ValidUntil() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.validUntil
}

// Clear closes the window
func (w *AuthWindow) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.validUntil = time.Time{}
}
