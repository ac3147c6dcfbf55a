// Package cryptox holds the small crypto helpers encore needs: random token
// generation, token fingerprinting for logs, and sealing of the durable
// refresh token so it is never written to disk in the clear.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealCorrupt reports sealed data that failed to authenticate, typically
// from a master key change or database tampering.
var ErrSealCorrupt = errors.New("cryptox: sealed data failed to authenticate")

// Sealer encrypts small secrets with ChaCha20-Poly1305 under a master key.
// The sealed format is [24-byte nonce][ciphertext+tag].
type Sealer struct {
	key []byte
}

// NewSealer derives a 32-byte key from arbitrary key material via SHA-256.
func NewSealer(keyMaterial []byte) *Sealer {
	sum := sha256.Sum256(keyMaterial)
	return &Sealer{key: sum[:]}
}

// LoadMasterKey resolves master key material in order of preference:
// the file at path (if set), the ENCORE_MASTER_KEY environment variable,
// and finally an ephemeral random key. An ephemeral key means sealed
// refresh tokens do not survive a restart, which is acceptable in dev.
func LoadMasterKey(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read master key file: %w", err)
		}
		return data, nil
	}

	if envKey := os.Getenv("ENCORE_MASTER_KEY"); envKey != "" {
		return []byte(envKey), nil
	}

	material := make([]byte, 32)
	if _, err := rand.Read(material); err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral master key: %w", err)
	}
	return material, nil
}

// Seal encrypts plaintext with a fresh random nonce.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	if len(sealed) < aead.NonceSize() {
		return nil, ErrSealCorrupt
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSealCorrupt
	}
	return plaintext, nil
}
