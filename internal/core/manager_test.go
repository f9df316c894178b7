package core

import (
	"bytes"
	"context"
	"encoding/hex"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/illarion/seedvault/internal/crypto"
	"github.com/illarion/seedvault/internal/metrics"
	"github.com/illarion/seedvault/internal/session"
	"github.com/illarion/seedvault/internal/signer"
	"github.com/illarion/seedvault/internal/vault"
)

const (
	testPIN    = "123456"
	testDigest = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	abandon    = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
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

// recordingWiper passes buffers to crypto.ClearBytes and remembers each
// buffer together with a copy of what it held before the wipe
type recordingWiper struct {
	mu     sync.Mutex
	bufs   [][]byte
	before [][]byte
}

func (r *recordingWiper) wipe(b []byte) {
	r.mu.Lock()
	r.bufs = append(r.bufs, b)
	r.before = append(r.before, bytes.Clone(b))
	r.mu.Unlock()
	crypto.ClearBytes(b)
}

func (r *recordingWiper) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bufs, r.before = nil, nil
}

// assertWiped checks that at least min buffers were wiped, that each of
// secrets was among them, and that every wiped buffer is still zero.
func (r *recordingWiper) assertWiped(t *testing.T, min int, secrets ...[]byte) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.bufs) < min {
		t.Fatalf("Expected at least %d wiped buffers, got %d", min, len(r.bufs))
	}
	for i, secret := range secrets {
		found := false
		for _, b := range r.before {
			if bytes.Equal(b, secret) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Secret %d was never wiped", i)
		}
	}
	for i, b := range r.bufs {
		if !crypto.IsZero(b) {
			t.Errorf("Buffer %d not zeroed", i)
		}
	}
}

func testSeed() []byte {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	return seed
}

func sealTestVault(t *testing.T, m *Manager) *vault.Envelope {
	t.Helper()
	env, err := m.Seal(testSeed(), []byte(testPIN))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	return env
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("Expected %s, got %s (%v)", want, got, err)
	}
}

func TestUnlockAndSignDER(t *testing.T) {
	m := NewManager()
	env := sealTestVault(t, m)
	ctx := context.Background()

	if err := m.Unlock(ctx, env, []byte(testPIN)); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if _, ok := m.SessionExpiresAt(); !ok {
		t.Error("Session should be live after unlock")
	}

	// No PIN: served from the session
	res, err := m.Sign(ctx, SignRequest{
		Vault:       env,
		Path:        BitcoinPath,
		MessageHash: testDigest,
		Network:     "mainnet",
	})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if res.RecID != nil {
		t.Error("DER signature should not carry a recovery id")
	}

	sig, _ := hex.DecodeString(res.Signature)
	pub, _ := hex.DecodeString(res.PubKey)
	digest, _ := hex.DecodeString(testDigest)
	if len(pub) != 33 {
		t.Errorf("Expected compressed public key, got %d bytes", len(pub))
	}

	ok, err := signer.Verify(pub, digest, sig)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Error("Signature does not verify against returned public key")
	}
}

func TestSignRecoverableEthereum(t *testing.T) {
	m := NewManager()
	env := sealTestVault(t, m)

	res, err := m.Sign(context.Background(), SignRequest{
		Vault:       env,
		PIN:         []byte(testPIN),
		Path:        EVMPath,
		MessageHash: "0x" + testDigest,
		Network:     "ethereum",
	})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if res.RecID == nil || (*res.RecID != 0 && *res.RecID != 1) {
		t.Fatalf("Unexpected recovery id: %v", res.RecID)
	}

	sig, _ := hex.DecodeString(res.Signature)
	if len(sig) != signer.RecoverableSize {
		t.Fatalf("Expected %d byte signature, got %d", signer.RecoverableSize, len(sig))
	}
	if int(sig[64]) != 27+*res.RecID {
		t.Errorf("v = %d, recId = %d", sig[64], *res.RecID)
	}

	digest, _ := hex.DecodeString(testDigest)
	recovered, err := signer.Recover(sig, digest)
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if hex.EncodeToString(recovered.SerializeUncompressed()) != res.PubKey {
		t.Error("Recovered key does not match returned public key")
	}
}

func TestSignSameKeyAcrossPINAndSession(t *testing.T) {
	m := NewManager()
	env := sealTestVault(t, m)
	ctx := context.Background()

	req := SignRequest{Vault: env, PIN: []byte(testPIN), Path: BitcoinPath, MessageHash: testDigest, Network: "mainnet"}
	withPIN, err := m.Sign(ctx, req)
	if err != nil {
		t.Fatalf("Sign with PIN failed: %v", err)
	}

	// A PIN-path sign does not populate the session
	req.PIN = nil
	if _, err := m.Sign(ctx, req); KindOf(err) != KindNoSession {
		t.Fatalf("Expected NoSession before unlock, got %v", err)
	}

	if err := m.Unlock(ctx, env, []byte(testPIN)); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	withSession, err := m.Sign(ctx, req)
	if err != nil {
		t.Fatalf("Sign with session failed: %v", err)
	}
	if withPIN.Signature != withSession.Signature || withPIN.PubKey != withSession.PubKey {
		t.Error("PIN and session paths should produce identical deterministic signatures")
	}
}

func TestAddressesVector(t *testing.T) {
	m := NewManager()
	env, err := m.SealMnemonic(abandon, "", []byte(testPIN))
	if err != nil {
		t.Fatalf("SealMnemonic failed: %v", err)
	}

	addrs, err := m.Addresses(context.Background(), env, []byte(testPIN))
	if err != nil {
		t.Fatalf("Addresses failed: %v", err)
	}
	if addrs.Bitcoin != "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu" {
		t.Errorf("Bitcoin = %s", addrs.Bitcoin)
	}
	if !strings.EqualFold(addrs.EVM, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94") {
		t.Errorf("EVM = %s", addrs.EVM)
	}
	if len(addrs.StacksPubKey) != 66 {
		t.Errorf("Stacks public key should be 33 bytes hex, got %q", addrs.StacksPubKey)
	}
}

func TestSealMnemonicRejectsInvalid(t *testing.T) {
	m := NewManager()
	_, err := m.SealMnemonic("abandon abandon abandon", "", []byte(testPIN))
	assertKind(t, err, KindInvalidRequest)
}

func TestSealValidation(t *testing.T) {
	m := NewManager()

	_, err := m.Seal(make([]byte, 8), []byte(testPIN))
	assertKind(t, err, KindInvalidRequest)

	_, err = m.Seal(testSeed(), nil)
	assertKind(t, err, KindInvalidRequest)

	env := sealTestVault(t, m)
	data, err := vault.EncodeEnvelope(env)
	if err != nil {
		t.Fatalf("EncodeEnvelope failed: %v", err)
	}
	decoded, err := vault.DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}
	if err := m.Verify(context.Background(), decoded, []byte(testPIN)); err != nil {
		t.Errorf("Sealed envelope does not survive encoding: %v", err)
	}
}

func TestUnlockWrongPINKeepsSession(t *testing.T) {
	m := NewManager()
	env := sealTestVault(t, m)
	ctx := context.Background()

	if err := m.Unlock(ctx, env, []byte(testPIN)); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	before, _ := m.SessionExpiresAt()

	err := m.Unlock(ctx, env, []byte("000000"))
	assertKind(t, err, KindAuthenticationFailure)

	after, ok := m.SessionExpiresAt()
	if !ok || !after.Equal(before) {
		t.Error("Failed unlock should leave the previous session untouched")
	}
}

func TestSessionFailures(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(WithSessionCache(session.New(time.Minute, session.WithClock(clock.Now))))
	env := sealTestVault(t, m)
	other := sealTestVault(t, m)
	ctx := context.Background()

	req := SignRequest{Vault: env, Path: "m/0", MessageHash: testDigest, Network: "testnet"}

	_, err := m.Sign(ctx, req)
	assertKind(t, err, KindNoSession)

	if err := m.Unlock(ctx, env, []byte(testPIN)); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	// Different vault, different salt
	_, err = m.Sign(ctx, SignRequest{Vault: other, Path: "m/0", MessageHash: testDigest, Network: "testnet"})
	assertKind(t, err, KindSessionMismatch)

	clock.Advance(59 * time.Second)
	if _, err := m.Sign(ctx, req); err != nil {
		t.Fatalf("Sign inside window failed: %v", err)
	}

	clock.Advance(time.Second)
	_, err = m.Sign(ctx, req)
	assertKind(t, err, KindSessionExpired)

	m.ClearSession()
	_, err = m.Sign(ctx, req)
	assertKind(t, err, KindNoSession)
}

func TestSignRequestValidation(t *testing.T) {
	m := NewManager()
	env := sealTestVault(t, m)

	tests := []struct {
		name string
		req  SignRequest
		want Kind
	}{
		{"no vault", SignRequest{Path: "m/0", MessageHash: testDigest, Network: "mainnet"}, KindInvalidRequest},
		{"bad path", SignRequest{Vault: env, Path: "m/x", MessageHash: testDigest, Network: "mainnet"}, KindInvalidDerivationPath},
		{"index too large", SignRequest{Vault: env, Path: "m/2147483648", MessageHash: testDigest, Network: "mainnet"}, KindInvalidDerivationPath},
		{"not hex", SignRequest{Vault: env, Path: "m/0", MessageHash: "zz", Network: "mainnet"}, KindInvalidRequest},
		{"short digest", SignRequest{Vault: env, Path: "m/0", MessageHash: "abcd", Network: "mainnet"}, KindInvalidRequest},
		{"unknown network", SignRequest{Vault: env, Path: "m/0", MessageHash: testDigest, Network: "dogecoin"}, KindInvalidRequest},
		{"unsupported version", SignRequest{Vault: &vault.Envelope{Version: 2, Salt: env.Salt, IV: env.IV, Data: env.Data}, Path: "m/0", MessageHash: testDigest, Network: "mainnet"}, KindUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.PIN = []byte(testPIN)
			_, err := m.Sign(context.Background(), tt.req)
			assertKind(t, err, tt.want)
		})
	}
}

func TestSignCanceledContext(t *testing.T) {
	m := NewManager()
	env := sealTestVault(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Sign(ctx, SignRequest{Vault: env, PIN: []byte(testPIN), Path: "m/0", MessageHash: testDigest, Network: "mainnet"})
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSignWipesOnSuccess(t *testing.T) {
	w := &recordingWiper{}
	m := NewManager(withWiper(w.wipe))
	env := sealTestVault(t, m)

	_, err := m.Sign(context.Background(), SignRequest{
		Vault: env, PIN: []byte(testPIN), Path: BitcoinPath, MessageHash: testDigest, Network: "mainnet",
	})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	w.assertWiped(t, 2, crypto.DeriveKey([]byte(testPIN), env.Salt), testSeed())
}

func TestSignWipesOnSessionPath(t *testing.T) {
	w := &recordingWiper{}
	m := NewManager(withWiper(w.wipe))
	env := sealTestVault(t, m)
	ctx := context.Background()

	if err := m.Unlock(ctx, env, []byte(testPIN)); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	w.reset()

	req := SignRequest{Vault: env, Path: BitcoinPath, MessageHash: testDigest, Network: "mainnet"}
	if _, err := m.Sign(ctx, req); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	w.assertWiped(t, 1, testSeed())

	// The session key itself stays sealed in the cache
	w.reset()
	if _, err := m.Sign(ctx, req); err != nil {
		t.Fatalf("Second session sign failed: %v", err)
	}
	w.assertWiped(t, 1, testSeed())
}

func TestSignWipesOnWrongPIN(t *testing.T) {
	w := &recordingWiper{}
	m := NewManager(withWiper(w.wipe))
	env := sealTestVault(t, m)

	_, err := m.Sign(context.Background(), SignRequest{
		Vault: env, PIN: []byte("999999"), Path: BitcoinPath, MessageHash: testDigest, Network: "mainnet",
	})
	assertKind(t, err, KindAuthenticationFailure)
	w.assertWiped(t, 1, crypto.DeriveKey([]byte("999999"), env.Salt))
}

func TestSignWipesAfterDecrypt(t *testing.T) {
	w := &recordingWiper{}
	m := NewManager(withWiper(w.wipe))

	// A vault whose plaintext is too short to be a BIP32 seed fails after
	// decryption has already produced seed bytes.
	salt := []byte("0123456789abcdef0123456789abcdef")
	enc, err := crypto.NewEncryptor(crypto.DeriveKey([]byte(testPIN), salt))
	if err != nil {
		t.Fatalf("NewEncryptor failed: %v", err)
	}
	iv, ct, err := enc.Seal([]byte("short"))
	enc.Destroy()
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	env := &vault.Envelope{Version: vault.EnvelopeVersion, Salt: salt, IV: iv, Data: ct}

	_, err = m.Sign(context.Background(), SignRequest{
		Vault: env, PIN: []byte(testPIN), Path: "m/0", MessageHash: testDigest, Network: "mainnet",
	})
	assertKind(t, err, KindInvalidEnvelope)
	w.assertWiped(t, 2, crypto.DeriveKey([]byte(testPIN), salt), []byte("short"))
}

func TestUnlockWipes(t *testing.T) {
	w := &recordingWiper{}
	m := NewManager(withWiper(w.wipe))
	env := sealTestVault(t, m)

	if err := m.Unlock(context.Background(), env, []byte(testPIN)); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	// The key is wiped by the session cache once sealed, the seed by us
	w.assertWiped(t, 2, testSeed())
}

func TestManagerMetrics(t *testing.T) {
	reg := metrics.New()
	m := NewManager(WithMetrics(reg))
	env := sealTestVault(t, m)

	m.Unlock(context.Background(), env, []byte("bad"))

	families, err := reg.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() != "seedvault_operations_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["op"] == "unlock" && labels["result"] == "AuthenticationFailure" {
				found = true
			}
		}
	}
	if !found {
		t.Error("Expected unlock/AuthenticationFailure counter")
	}
}
