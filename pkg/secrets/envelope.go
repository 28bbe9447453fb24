// Package secrets encrypts tenant-supplied API key material at rest.
// Each key is sealed with AES-256-GCM under a key derived per-secret with
// scrypt over a random salt; salt, nonce and ciphertext travel together as
// a single opaque blob so the store never needs a side channel for them.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

const (
	saltSize   = 16
	keySize    = 32 // AES-256
	scryptN    = 1 << 15
	scryptR    = 8
	scryptP    = 1
)

// ErrEnvelopeTooShort indicates a blob shorter than salt+nonce, so it
// cannot possibly be a value this package produced.
var ErrEnvelopeTooShort = errors.New("secrets: envelope too short")

// Sealer encrypts and decrypts tenant API key material with a master
// passphrase supplied at process startup (never persisted alongside the
// ciphertext).
type Sealer struct {
	masterKey []byte
}

// NewSealer derives nothing itself; masterKey is mixed into every
// per-secret scrypt derivation as additional entropy so a leaked salt
// alone is never enough to recover a key.
func NewSealer(masterKey []byte) (*Sealer, error) {
	if len(masterKey) == 0 {
		return nil, errors.New("secrets: master key must not be empty")
	}
	return &Sealer{masterKey: masterKey}, nil
}

// Seal encrypts plaintext (typically a provider API key) and returns an
// opaque blob: salt || nonce || ciphertext. Callers persist the blob
// verbatim; Open reverses it given the same Sealer.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("secrets: generate salt: %w", err)
	}
	key, err := s.derive(salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets: new gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("secrets: generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 0, saltSize+len(nonce)+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// Open decrypts a blob produced by Seal. Returns ErrEnvelopeTooShort if
// the blob cannot possibly contain a valid salt+nonce prefix, and the
// GCM authentication error otherwise if the ciphertext was tampered with
// or the wrong master key is in use.
func (s *Sealer) Open(blob []byte) ([]byte, error) {
	if len(blob) < saltSize+12 {
		return nil, ErrEnvelopeTooShort
	}
	salt := blob[:saltSize]
	key, err := s.derive(salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets: new gcm: %w", err)
	}
	nonceSize := gcm.NonceSize()
	if len(blob) < saltSize+nonceSize {
		return nil, ErrEnvelopeTooShort
	}
	nonce := blob[saltSize : saltSize+nonceSize]
	ciphertext := blob[saltSize+nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("secrets: decrypt: %w", err)
	}
	return plaintext, nil
}

func (s *Sealer) derive(salt []byte) ([]byte, error) {
	key, err := scrypt.Key(s.masterKey, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("secrets: derive key: %w", err)
	}
	return key, nil
}
