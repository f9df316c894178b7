package core

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/illarion/seedvault/internal/crypto"
	"github.com/illarion/seedvault/internal/hd"
	"github.com/illarion/seedvault/internal/metrics"
	"github.com/illarion/seedvault/internal/session"
	"github.com/illarion/seedvault/internal/signer"
	"github.com/illarion/seedvault/internal/vault"
	"github.com/rs/zerolog"
	"github.com/tyler-smith/go-bip39"
)

// Root derivation paths of the default accounts
const (
	BitcoinPath = "m/84'/0'/0'/0/0"
	EVMPath     = "m/44'/60'/0'/0/0"
	StacksPath  = "m/44'/5757'/0'/0/0"
)

// Key sources, as reported in metrics and logs
const (
	sourcePIN     = "pin"
	sourceSession = "session"
)

var (
	bitcoinPath = mustParsePath(BitcoinPath)
	evmPath     = mustParsePath(EVMPath)
	stacksPath  = mustParsePath(StacksPath)
)

func mustParsePath(s string) hd.Path {
	p, err := hd.ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// SignRequest describes one signature
type SignRequest struct {
	Vault *vault.Envelope
	// PIN decrypts the vault directly; when empty the unlocked session is used
	PIN []byte
	// Path is a BIP32 path such as m/84'/0'/0'/0/0
	Path string
	// MessageHash is the 32-byte digest in hex, optionally 0x-prefixed
	MessageHash string
	// Network selects the signature mode
	Network string
}

// SignResult is the hex-encoded outcome of Sign
type SignResult struct {
	Signature string `json:"signature"`
	PubKey    string `json:"pubkey"`
	RecID     *int   `json:"recId,omitempty"`
}

// Addresses lists the receive addresses of a vault's default accounts
type Addresses struct {
	Bitcoin      string `json:"bitcoin"`
	EVM          string `json:"evm"`
	StacksPubKey string `json:"stacksPubKey"`
}

// Manager unlocks vault envelopes and signs with keys derived from them.
// It owns the process's single session slot; create one per process.
type Manager struct {
	cache   *session.Cache
	log     zerolog.Logger
	metrics *metrics.Metrics
	wipe    func([]byte)
}

// NewManager creates a Manager. Without WithSessionCache it uses a cache
// with session.DefaultTTL.
func NewManager(opts ...Option) *Manager {
	o := newOptions(opts)
	cache := o.cache
	if cache == nil {
		cache = session.New(session.DefaultTTL)
	}
	return &Manager{
		cache:   cache,
		log:     o.log.With().Str("component", "manager").Logger(),
		metrics: o.metrics,
		wipe:    o.wipe,
	}
}

// Unlock checks pin against env and, on success, replaces the session with
// the derived key. A failed unlock leaves the previous session in place.
func (m *Manager) Unlock(ctx context.Context, env *vault.Envelope, pin []byte) (err error) {
	defer func() { m.observe("unlock", err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkEnvelope(env); err != nil {
		return err
	}
	if len(pin) == 0 {
		return fmt.Errorf("%w: pin required", ErrInvalidRequest)
	}

	sc := newScope(m.wipe)
	defer sc.Close()

	key := sc.bytes(m.deriveKey(pin, env.Salt))
	seed, err := openSeed(key, env)
	sc.bytes(seed)
	if err != nil {
		return err
	}

	// Store seals key into an enclave and wipes our copy
	expires := m.cache.Store(key, env.Salt)
	m.log.Info().Time("expires", expires).Msg("Vault unlocked")
	return nil
}

// Verify checks pin against env without touching the session
func (m *Manager) Verify(ctx context.Context, env *vault.Envelope, pin []byte) (err error) {
	defer func() { m.observe("verify", err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkEnvelope(env); err != nil {
		return err
	}

	sc := newScope(m.wipe)
	defer sc.Close()

	key := sc.bytes(m.deriveKey(pin, env.Salt))
	seed, err := openSeed(key, env)
	sc.bytes(seed)
	return err
}

// Sign derives the key at req.Path and signs req.MessageHash in the mode of
// req.Network. The request is validated before any key derivation.
func (m *Manager) Sign(ctx context.Context, req SignRequest) (res *SignResult, err error) {
	defer func() { m.observe("sign", err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkEnvelope(req.Vault); err != nil {
		return nil, err
	}
	path, err := hd.ParsePath(req.Path)
	if err != nil {
		return nil, err
	}
	digest, err := decodeDigest(req.MessageHash)
	if err != nil {
		return nil, err
	}
	mode, err := signer.ModeForNetwork(req.Network)
	if err != nil {
		return nil, err
	}

	sc := newScope(m.wipe)
	defer sc.Close()

	seed, source, err := m.seed(sc, req.Vault, req.PIN)
	if err != nil {
		return nil, err
	}
	master, err := newMaster(sc, seed)
	if err != nil {
		return nil, err
	}
	leaf, err := master.Derive(path)
	if err != nil {
		return nil, err
	}
	sc.key(leaf)
	priv, err := leaf.PrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}
	sc.priv(priv)

	sig, err := signer.Sign(priv, digest, mode)
	if err != nil {
		return nil, err
	}

	m.metrics.Signature(mode.String(), source)
	m.log.Debug().
		Str("network", req.Network).
		Str("path", path.String()).
		Str("mode", mode.String()).
		Str("source", source).
		Msg("Signed digest")

	return &SignResult{
		Signature: hex.EncodeToString(sig.Signature),
		PubKey:    hex.EncodeToString(sig.PublicKey),
		RecID:     sig.RecID,
	}, nil
}

// Addresses derives the default account addresses of env, decrypting with
// pin or, when pin is empty, the unlocked session.
func (m *Manager) Addresses(ctx context.Context, env *vault.Envelope, pin []byte) (res *Addresses, err error) {
	defer func() { m.observe("addresses", err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkEnvelope(env); err != nil {
		return nil, err
	}

	sc := newScope(m.wipe)
	defer sc.Close()

	seed, _, err := m.seed(sc, env, pin)
	if err != nil {
		return nil, err
	}
	master, err := newMaster(sc, seed)
	if err != nil {
		return nil, err
	}

	btcPub, err := publicKeyAt(sc, master, bitcoinPath)
	if err != nil {
		return nil, err
	}
	evmPub, err := publicKeyAt(sc, master, evmPath)
	if err != nil {
		return nil, err
	}
	stxPub, err := publicKeyAt(sc, master, stacksPath)
	if err != nil {
		return nil, err
	}

	btcAddr, err := signer.BitcoinAddress(btcPub, "mainnet")
	if err != nil {
		return nil, err
	}
	return &Addresses{
		Bitcoin:      btcAddr,
		EVM:          signer.EVMAddress(evmPub),
		StacksPubKey: hex.EncodeToString(stxPub.SerializeCompressed()),
	}, nil
}

// Seal encrypts seed under a key derived from pin with a fresh salt
func (m *Manager) Seal(seed, pin []byte) (env *vault.Envelope, err error) {
	defer func() { m.observe("seal", err) }()

	if len(seed) < hdkeychain.MinSeedBytes || len(seed) > hdkeychain.MaxSeedBytes {
		return nil, fmt.Errorf("%w: seed must be %d to %d bytes", ErrInvalidRequest,
			hdkeychain.MinSeedBytes, hdkeychain.MaxSeedBytes)
	}
	if len(pin) == 0 {
		return nil, fmt.Errorf("%w: pin required", ErrInvalidRequest)
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return nil, err
	}
	enc, err := crypto.NewEncryptor(m.deriveKey(pin, salt))
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()

	iv, ciphertext, err := enc.Seal(seed)
	if err != nil {
		return nil, err
	}

	m.log.Info().Msg("Sealed new vault")
	return &vault.Envelope{
		Version: vault.EnvelopeVersion,
		Salt:    salt,
		IV:      iv,
		Data:    ciphertext,
	}, nil
}

// SealMnemonic converts an existing BIP39 mnemonic (and optional passphrase)
// to its seed and seals it. Mnemonics are never generated here.
func (m *Manager) SealMnemonic(mnemonic, passphrase string, pin []byte) (*vault.Envelope, error) {
	mnemonic = strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		m.observe("seal", ErrInvalidRequest)
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	defer m.wipe(seed)

	return m.Seal(seed, pin)
}

// ClearSession drops the unlocked session
func (m *Manager) ClearSession() {
	m.cache.Clear()
	m.metrics.Operation("clear_session", "ok")
	m.log.Info().Msg("Session cleared")
}

// SessionExpiresAt reports when the live session ends
func (m *Manager) SessionExpiresAt() (time.Time, bool) {
	return m.cache.ExpiresAt()
}

// seed decrypts the vault seed with pin, or with the session key when pin is
// empty. The seed is tracked by sc.
func (m *Manager) seed(sc *scope, env *vault.Envelope, pin []byte) ([]byte, string, error) {
	if len(pin) > 0 {
		key := sc.bytes(m.deriveKey(pin, env.Salt))
		seed, err := openSeed(key, env)
		return sc.bytes(seed), sourcePIN, err
	}

	buf, err := m.cache.Key(env.Salt)
	if err != nil {
		return nil, sourceSession, err
	}
	defer buf.Destroy()

	seed, err := openSeed(buf.Bytes(), env)
	return sc.bytes(seed), sourceSession, err
}

func (m *Manager) deriveKey(pin, salt []byte) []byte {
	start := time.Now()
	key := crypto.DeriveKey(pin, salt)
	m.metrics.KDF(time.Since(start))
	return key
}

func (m *Manager) observe(op string, err error) {
	m.metrics.Operation(op, resultLabel(err))
	if err != nil {
		m.log.Warn().
			Str("op", op).
			Str("kind", KindOf(err).String()).
			Err(err).
			Msg("Operation failed")
	}
}

// openSeed decrypts the envelope data under key. key is not consumed.
func openSeed(key []byte, env *vault.Envelope) ([]byte, error) {
	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		return nil, err
	}
	seed, err := enc.Open(env.IV, env.Data)
	if errors.Is(err, crypto.ErrInvalidCiphertext) {
		return nil, fmt.Errorf("%w: %v", vault.ErrInvalidEnvelope, err)
	}
	return seed, err
}

func newMaster(sc *scope, seed []byte) (*hd.Key, error) {
	master, err := hd.NewMaster(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vault.ErrInvalidEnvelope, err)
	}
	return sc.key(master), nil
}

func publicKeyAt(sc *scope, master *hd.Key, path hd.Path) (*btcec.PublicKey, error) {
	leaf, err := master.Derive(path)
	if err != nil {
		return nil, err
	}
	sc.key(leaf)
	return leaf.PublicKey()
}

func checkEnvelope(env *vault.Envelope) error {
	switch {
	case env == nil:
		return fmt.Errorf("%w: vault required", ErrInvalidRequest)
	case env.Version != vault.EnvelopeVersion:
		return fmt.Errorf("%w: envelope version %d", vault.ErrUnsupportedVersion, env.Version)
	case len(env.Salt) == 0 || len(env.IV) != crypto.NonceSize:
		return fmt.Errorf("%w: bad salt or iv", vault.ErrInvalidEnvelope)
	}
	return nil
}

func decodeDigest(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	digest, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: message hash is not hex", ErrInvalidRequest)
	}
	if len(digest) != signer.DigestSize {
		return nil, fmt.Errorf("%w: got %d bytes", signer.ErrInvalidDigest, len(digest))
	}
	return digest, nil
}
