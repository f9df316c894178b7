package keystore

import (
	"github.com/illarion/seedvault/internal/crypto"
)

// Handle is an opaque symmetric key. Auth-bound handles refuse to work
// outside an authorized window.
type Handle struct {
	alias       string
	key         []byte
	requireAuth bool
	auth        Authorizer
}

func newHandle(alias string, key []byte, requireAuth bool, auth Authorizer) *Handle {
	return &Handle{
		alias:       alias,
		key:         key,
		requireAuth: requireAuth,
		auth:        auth,
	}
}

// Alias returns the keyring alias of the key
func (h *Handle) Alias() string {
	return h.alias
}

// RequiresAuth reports whether the handle is auth-bound
func (h *Handle) RequiresAuth() bool {
	return h.requireAuth
}

// Usable reports whether Seal and Open would pass the auth check now
func (h *Handle) Usable() bool {
	return !h.requireAuth || (h.auth != nil && h.auth.Valid())
}

func (h *Handle) encryptor() (*crypto.Encryptor, error) {
	if !h.Usable() {
		return nil, ErrAuthRequired
	}
	key := make([]byte, len(h.key))
	copy(key, h.key)
	return crypto.NewEncryptor(key)
}

// Seal encrypts plaintext under the handle's key
func (h *Handle) Seal(plaintext []byte) (iv, ciphertext []byte, err error) {
	enc, err := h.encryptor()
	if err != nil {
		return nil, nil, err
	}
	defer enc.Destroy()
	return enc.Seal(plaintext)
}

// Open decrypts ciphertext under the handle's key
func (h *Handle) Open(iv, ciphertext []byte) ([]byte, error) {
	enc, err := h.encryptor()
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()
	return enc.Open(iv, ciphertext)
}

// Destroy clears the key from memory
func (h *Handle) Destroy() {
	crypto.ClearBytes(h.key)
}
