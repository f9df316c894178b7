package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := GenerateRandom(KeySize)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	return key
}

func TestSealOpenRoundTrip(t *testing.T) {
	enc, err := NewEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewEncryptor failed: %v", err)
	}
	defer enc.Destroy()

	for _, plaintext := range [][]byte{
		{},
		[]byte("a"),
		bytes.Repeat([]byte{0xAB}, 64),
		bytes.Repeat([]byte("seed"), 1000),
	} {
		iv, ciphertext, err := enc.Seal(plaintext)
		if err != nil {
			t.Fatalf("Seal failed: %v", err)
		}
		if len(iv) != NonceSize {
			t.Errorf("IV length = %d, want %d", len(iv), NonceSize)
		}
		if len(ciphertext) != len(plaintext)+TagSize {
			t.Errorf("ciphertext length = %d, want %d", len(ciphertext), len(plaintext)+TagSize)
		}

		got, err := enc.Open(iv, ciphertext)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("round trip mismatch for %d-byte plaintext", len(plaintext))
		}
	}
}

func TestSealUsesFreshIV(t *testing.T) {
	enc, err := NewEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewEncryptor failed: %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		iv, _, err := enc.Seal([]byte("same plaintext"))
		if err != nil {
			t.Fatalf("Seal failed: %v", err)
		}
		if seen[string(iv)] {
			t.Fatal("IV reused across Seal calls")
		}
		seen[string(iv)] = true
	}
}

func TestOpenDetectsTampering(t *testing.T) {
	enc, err := NewEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewEncryptor failed: %v", err)
	}

	iv, ciphertext, err := enc.Seal([]byte("thirty-two bytes of wallet seed!"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	// Flip every bit of the ciphertext, one at a time
	for i := 0; i < len(ciphertext)*8; i++ {
		tampered := append([]byte(nil), ciphertext...)
		tampered[i/8] ^= 1 << (i % 8)
		got, err := enc.Open(iv, tampered)
		if !errors.Is(err, ErrAuthFailed) {
			t.Fatalf("bit %d: expected ErrAuthFailed, got %v", i, err)
		}
		if got != nil {
			t.Fatalf("bit %d: plaintext returned on failure", i)
		}
	}

	// Flip every bit of the IV
	for i := 0; i < len(iv)*8; i++ {
		tampered := append([]byte(nil), iv...)
		tampered[i/8] ^= 1 << (i % 8)
		if _, err := enc.Open(tampered, ciphertext); !errors.Is(err, ErrAuthFailed) {
			t.Fatalf("iv bit %d: expected ErrAuthFailed, got %v", i, err)
		}
	}
}

func TestOpenWrongKey(t *testing.T) {
	enc, _ := NewEncryptor(testKey(t))
	other, _ := NewEncryptor(testKey(t))

	iv, ciphertext, err := enc.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if _, err := other.Open(iv, ciphertext); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
}

func TestOpenMalformedInput(t *testing.T) {
	enc, _ := NewEncryptor(testKey(t))

	tests := []struct {
		name       string
		iv         []byte
		ciphertext []byte
	}{
		{"short iv", make([]byte, 8), make([]byte, 32)},
		{"long iv", make([]byte, 16), make([]byte, 32)},
		{"short ciphertext", make([]byte, NonceSize), make([]byte, TagSize-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := enc.Open(tt.iv, tt.ciphertext); !errors.Is(err, ErrInvalidCiphertext) {
				t.Errorf("expected ErrInvalidCiphertext, got %v", err)
			}
		})
	}
}

func TestNewEncryptorRejectsBadKey(t *testing.T) {
	if _, err := NewEncryptor(make([]byte, 16)); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := []byte("0123456789abcdef0123456789abcdef")

	k1 := DeriveKey([]byte("1234"), salt)
	k2 := DeriveKey([]byte("1234"), salt)
	if len(k1) != KeySize {
		t.Fatalf("key length = %d, want %d", len(k1), KeySize)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("same pin and salt produced different keys")
	}

	if bytes.Equal(k1, DeriveKey([]byte("1235"), salt)) {
		t.Error("different pin produced the same key")
	}

	otherSalt := append([]byte(nil), salt...)
	otherSalt[0] ^= 1
	if bytes.Equal(k1, DeriveKey([]byte("1234"), otherSalt)) {
		t.Error("different salt produced the same key")
	}
}

func TestDestroyClearsKey(t *testing.T) {
	key := testKey(t)
	enc, _ := NewEncryptor(key)
	enc.Destroy()

	if !IsZero(key) {
		t.Error("Destroy should zero the key")
	}
}

func TestClearBytes(t *testing.T) {
	b := []byte("sensitive")
	ClearBytes(b)
	if !IsZero(b) {
		t.Errorf("ClearBytes left data: %v", b)
	}
}
