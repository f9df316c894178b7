package session

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestCacheLifecycle(t *testing.T) {
	clk := newFakeClock()
	ttl := time.Minute
	cache := New(ttl, WithClock(clk.Now))
	salt := []byte("salt-a")

	if _, err := cache.Key(salt); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession before unlock, got %v", err)
	}

	key := testKey()
	expires := cache.Store(key, salt)
	if !expires.Equal(clk.Now().Add(ttl)) {
		t.Errorf("expiry = %v, want %v", expires, clk.Now().Add(ttl))
	}
	if !bytes.Equal(key, make([]byte, 32)) {
		t.Error("Store should wipe the caller's key slice")
	}

	// Elapsed < TTL succeeds
	clk.Advance(ttl - time.Nanosecond)
	buf, err := cache.Key(salt)
	if err != nil {
		t.Fatalf("Key failed inside window: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), testKey()) {
		t.Error("cached key mismatch")
	}
	buf.Destroy()

	// Elapsed == TTL fails
	clk.Advance(time.Nanosecond)
	if _, err := cache.Key(salt); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired at TTL, got %v", err)
	}
	if _, err := cache.Key(salt); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired to persist, got %v", err)
	}
	if _, ok := cache.ExpiresAt(); ok {
		t.Error("ExpiresAt should report no live session after expiry")
	}
}

func TestCacheSaltMismatchRegardlessOfTime(t *testing.T) {
	clk := newFakeClock()
	cache := New(time.Minute, WithClock(clk.Now))
	cache.Store(testKey(), []byte("salt-a"))

	if _, err := cache.Key([]byte("salt-b")); !errors.Is(err, ErrSaltMismatch) {
		t.Fatalf("expected ErrSaltMismatch inside window, got %v", err)
	}

	clk.Advance(time.Hour)
	if _, err := cache.Key([]byte("salt-b")); !errors.Is(err, ErrSaltMismatch) {
		t.Fatalf("expected ErrSaltMismatch after expiry, got %v", err)
	}
}

func TestCacheDoesNotSlide(t *testing.T) {
	clk := newFakeClock()
	cache := New(time.Minute, WithClock(clk.Now))
	salt := []byte("salt")
	cache.Store(testKey(), salt)

	for i := 0; i < 5; i++ {
		clk.Advance(10 * time.Second)
		buf, err := cache.Key(salt)
		if err != nil {
			t.Fatalf("use %d failed: %v", i, err)
		}
		buf.Destroy()
	}

	clk.Advance(10 * time.Second)
	if _, err := cache.Key(salt); !errors.Is(err, ErrExpired) {
		t.Fatalf("use should not extend the session, got %v", err)
	}
}

func TestCacheStoreReplacesSlot(t *testing.T) {
	clk := newFakeClock()
	cache := New(time.Minute, WithClock(clk.Now))
	cache.Store(testKey(), []byte("salt-a"))
	cache.Store(bytes.Repeat([]byte{0x24}, 32), []byte("salt-b"))

	if _, err := cache.Key([]byte("salt-a")); !errors.Is(err, ErrSaltMismatch) {
		t.Errorf("old vault should no longer match, got %v", err)
	}
	buf, err := cache.Key([]byte("salt-b"))
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	defer buf.Destroy()
	if buf.Bytes()[0] != 0x24 {
		t.Error("slot should hold the newest key")
	}
}

func TestCacheClear(t *testing.T) {
	cache := New(time.Minute)
	salt := []byte("salt")
	cache.Store(testKey(), salt)
	cache.Clear()

	if _, err := cache.Key(salt); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after Clear, got %v", err)
	}
	if _, ok := cache.ExpiresAt(); ok {
		t.Error("ExpiresAt should be empty after Clear")
	}
}

func TestCacheDefaultTTL(t *testing.T) {
	if got := New(0).TTL(); got != DefaultTTL {
		t.Errorf("TTL = %v, want %v", got, DefaultTTL)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	cache := New(time.Minute)
	salt := []byte("salt")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				cache.Store(testKey(), salt)
				if buf, err := cache.Key(salt); err == nil {
					buf.Destroy()
				}
				if j%5 == 0 {
					cache.Clear()
				}
			}
		}()
	}
	wg.Wait()
}

func TestAuthWindow(t *testing.T) {
	clk := newFakeClock()
	w := NewAuthWindow(WithClock(clk.Now))

	if w.Valid() {
		t.Fatal("new window should be closed")
	}

	until := w.Grant(2 * time.Second)
	if !until.Equal(clk.Now().Add(MinAuthDuration)) {
		t.Errorf("short grants should clamp to %v", MinAuthDuration)
	}
	if !w.Valid() {
		t.Error("window should be open after Grant")
	}

	clk.Advance(MinAuthDuration)
	if w.Valid() {
		t.Error("window should close at expiry")
	}

	until = w.Grant(0)
	if !until.Equal(clk.Now().Add(DefaultAuthDuration)) {
		t.Errorf("zero grant should use %v", DefaultAuthDuration)
	}

	w.Clear()
	if w.Valid() || !w.ValidUntil().IsZero() {
		t.Error("Clear should close the window")
	}
}
