package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/illarion/seedvault/internal/crypto"
	"github.com/illarion/seedvault/internal/keystore"
	"github.com/illarion/seedvault/internal/metrics"
	"github.com/illarion/seedvault/internal/session"
	"github.com/illarion/seedvault/internal/storage"
	"github.com/illarion/seedvault/internal/vault"
	"github.com/rs/zerolog"
)

const authPromptTitle = "Unlock seedvault"

// Prompter asks the user to confirm their identity. Prompt returns nil on
// success, ErrPromptCanceled when the user backs out and any other error when
// the check fails.
type Prompter interface {
	Prompt(ctx context.Context, title string) error
}

// Store is the secure item store. Values are encrypted with a platform key
// before they reach storage: v1 records use a plain key, v2 records a key that
// only works while the authentication window is open.
type Store struct {
	db           *storage.Storage
	keys         keystore.Service
	window       *session.AuthWindow
	prompter     Prompter
	authDuration time.Duration
	log          zerolog.Logger
	metrics      *metrics.Metrics
}

// NewStore creates a Store. window must be the Authorizer behind keys'
// auth-bound handles. prompter may be nil, in which case Authenticate fails
// with ErrPromptUnavailable.
func NewStore(db *storage.Storage, keys keystore.Service, window *session.AuthWindow, prompter Prompter, opts ...Option) *Store {
	o := newOptions(opts)
	return &Store{
		db:           db,
		keys:         keys,
		window:       window,
		prompter:     prompter,
		authDuration: o.authDuration,
		log:          o.log.With().Str("component", "store").Logger(),
		metrics:      o.metrics,
	}
}

// IsAvailable reports whether Authenticate can prompt
func (s *Store) IsAvailable() bool {
	return s.prompter != nil
}

// SetItem encrypts value and stores it under key. With requireBiometric the
// value is bound to the auth-gated key and needs an open window.
func (s *Store) SetItem(key, value string, requireBiometric bool) (err error) {
	defer func() { s.observe("set_item", err) }()

	if key == "" {
		return fmt.Errorf("%w: key required", ErrInvalidRequest)
	}
	if requireBiometric {
		if err := s.requireAuthKey(); err != nil {
			return err
		}
	}

	plaintext := []byte(value)
	defer crypto.ClearBytes(plaintext)

	record, err := s.encrypt(plaintext, requireBiometric)
	if err != nil {
		return err
	}
	return s.db.PutItem(key, record)
}

// GetItem returns the value stored under key. A v1 record read with
// requireBiometric is re-encrypted as v2 and written back.
func (s *Store) GetItem(key string, requireBiometric bool) (value string, found bool, err error) {
	defer func() { s.observe("get_item", err) }()

	if key == "" {
		return "", false, fmt.Errorf("%w: key required", ErrInvalidRequest)
	}
	if requireBiometric && !s.window.Valid() {
		return "", false, keystore.ErrAuthRequired
	}

	raw, found, err := s.db.GetItem(key)
	if err != nil || !found {
		return "", false, err
	}
	record, err := vault.DecodeRecord(raw)
	if err != nil {
		return "", false, err
	}

	if requireBiometric && record.Version == vault.RecordV1 {
		return s.migrate(key, record)
	}

	plaintext, err := s.decrypt(record)
	if err != nil {
		return "", false, err
	}
	defer crypto.ClearBytes(plaintext)
	return string(plaintext), true, nil
}

func (s *Store) migrate(key string, record *vault.Record) (string, bool, error) {
	if err := s.requireAuthKey(); err != nil {
		return "", false, err
	}

	plaintext, err := s.decrypt(record)
	if err != nil {
		return "", false, err
	}
	defer crypto.ClearBytes(plaintext)

	migrated, err := s.encrypt(plaintext, true)
	if err != nil {
		return "", false, err
	}
	if err := s.db.PutItem(key, migrated); err != nil {
		return "", false, err
	}

	s.metrics.Operation("migrate_item", "ok")
	s.log.Info().Str("key", key).Msg("Migrated item to auth-bound record")
	return string(plaintext), true, nil
}

// HasItem reports whether a record exists under key. It never decrypts.
func (s *Store) HasItem(key string) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("%w: key required", ErrInvalidRequest)
	}
	return s.db.HasItem(key)
}

// RemoveItem deletes key, gated like SetItem
func (s *Store) RemoveItem(key string, requireBiometric bool) (err error) {
	defer func() { s.observe("remove_item", err) }()

	if key == "" {
		return fmt.Errorf("%w: key required", ErrInvalidRequest)
	}
	if requireBiometric {
		if err := s.requireAuthKey(); err != nil {
			return err
		}
	}
	return s.db.DeleteItem(key)
}

// Authenticate prompts the user and opens the window for seconds, clamped
// to at least 10. It returns the end of the window.
func (s *Store) Authenticate(ctx context.Context, seconds int) (time.Time, error) {
	return s.authenticate(ctx, max(session.MinAuthDuration, time.Duration(seconds)*time.Second))
}

// AuthenticateDefault is Authenticate with the configured window length,
// for callers that did not ask for one.
func (s *Store) AuthenticateDefault(ctx context.Context) (time.Time, error) {
	return s.authenticate(ctx, s.authDuration)
}

func (s *Store) authenticate(ctx context.Context, d time.Duration) (validUntil time.Time, err error) {
	defer func() { s.observe("authenticate", err) }()

	if s.prompter == nil {
		return time.Time{}, ErrPromptUnavailable
	}
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	if err := s.prompter.Prompt(ctx, authPromptTitle); err != nil {
		if errors.Is(err, ErrPromptCanceled) || errors.Is(err, ErrPromptFailed) {
			return time.Time{}, err
		}
		return time.Time{}, fmt.Errorf("%w: %v", ErrPromptFailed, err)
	}

	validUntil = s.window.Grant(d)

	// The auth key must work inside the fresh window
	if err := s.requireAuthKey(); err != nil {
		s.window.Clear()
		return time.Time{}, fmt.Errorf("%w: %v", ErrPromptFailed, err)
	}

	s.log.Info().Time("valid_until", validUntil).Msg("Authentication window opened")
	return validUntil, nil
}

// ClearBiometricSession closes the authentication window
func (s *Store) ClearBiometricSession() {
	s.window.Clear()
	s.metrics.Operation("clear_biometric_session", "ok")
	s.log.Info().Msg("Authentication window closed")
}

// requireAuthKey checks the window and probes the auth-bound key
func (s *Store) requireAuthKey() error {
	if !s.window.Valid() {
		return keystore.ErrAuthRequired
	}
	h, err := s.keys.GetOrCreateKey(keystore.AliasV2Auth, true)
	if err != nil {
		return err
	}
	defer h.Destroy()
	if !h.Usable() {
		return keystore.ErrAuthRequired
	}
	return nil
}

func (s *Store) encrypt(plaintext []byte, requireAuth bool) (string, error) {
	alias, version := keystore.AliasV1, vault.RecordV1
	if requireAuth {
		alias, version = keystore.AliasV2Auth, vault.RecordV2
	}

	h, err := s.keys.GetOrCreateKey(alias, requireAuth)
	if err != nil {
		return "", err
	}
	defer h.Destroy()

	iv, ciphertext, err := h.Seal(plaintext)
	if err != nil {
		return "", err
	}
	return vault.EncodeRecord(&vault.Record{
		Version:    version,
		IV:         iv,
		Ciphertext: ciphertext,
	}), nil
}

func (s *Store) decrypt(record *vault.Record) ([]byte, error) {
	alias, requireAuth := keystore.AliasV1, false
	if record.Version == vault.RecordV2 {
		alias, requireAuth = keystore.AliasV2Auth, true
	}

	h, err := s.keys.GetOrCreateKey(alias, requireAuth)
	if err != nil {
		return nil, err
	}
	defer h.Destroy()

	plaintext, err := h.Open(record.IV, record.Ciphertext)
	if errors.Is(err, crypto.ErrInvalidCiphertext) {
		return nil, fmt.Errorf("%w: %v", vault.ErrInvalidRecord, err)
	}
	return plaintext, err
}

func (s *Store) observe(op string, err error) {
	s.metrics.Operation(op, resultLabel(err))
	if err != nil {
		s.log.Warn().
			Str("op", op).
			Str("kind", KindOf(err).String()).
			Err(err).
			Msg("Operation failed")
	}
}
