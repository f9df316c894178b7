package keystore

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/illarion/seedvault/internal/crypto"
	"github.com/zalando/go-keyring"
)

const DefaultService = "seedvault"

// Key aliases for the two record versions
const (
	AliasV1     = "seedvault.aes.v1"
	AliasV2Auth = "seedvault.aes.v2.auth"
)

var ErrAuthRequired = errors.New("auth required")

// Authorizer reports whether auth-bound keys may be used right now
type Authorizer interface {
	Valid() bool
}

// Service hands out symmetric keys by alias
type Service interface {
	GetOrCreateKey(alias string, requireAuth bool) (*Handle, error)
}

// Keyring stores AES keys in the OS keyring
type Keyring struct {
	service string
	auth    Authorizer
}

// NewKeyring creates a keyring-backed Service. Auth-bound handles consult
// auth on every use.
func NewKeyring(service string, auth Authorizer) *Keyring {
	if service == "" {
		service = DefaultService
	}
	return &Keyring{
		service: service,
		auth:    auth,
	}
}

// GetOrCreateKey loads the key stored under alias, generating and saving a
// random 256-bit key the first time.
func (k *Keyring) GetOrCreateKey(alias string, requireAuth bool) (*Handle, error) {
	encoded, err := keyring.Get(k.service, alias)
	switch {
	case err == nil:
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil || len(key) != crypto.KeySize {
			return nil, fmt.Errorf("corrupt key %s in keyring", alias)
		}
		return newHandle(alias, key, requireAuth, k.auth), nil

	case errors.Is(err, keyring.ErrNotFound):
		key, err := crypto.GenerateRandom(crypto.KeySize)
		if err != nil {
			return nil, err
		}
		if err := keyring.Set(k.service, alias, base64.StdEncoding.EncodeToString(key)); err != nil {
			crypto.ClearBytes(key)
			return nil, fmt.Errorf("failed to save key %s: %w", alias, err)
		}
		return newHandle(alias, key, requireAuth, k.auth), nil

	default:
		return nil, fmt.Errorf("failed to read key %s: %w", alias, err)
	}
}

// DeleteKey removes the key stored under alias
func (k *Keyring) DeleteKey(alias string) error {
	if err := keyring.Delete(k.service, alias); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// HasKey checks if a key is stored under alias
func (k *Keyring) HasKey(alias string) bool {
	_, err := keyring.Get(k.service, alias)
	return err == nil
}
