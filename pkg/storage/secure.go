package storage

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
)

// Secure is an encrypting decorator over another Storage. Values are
// sealed with AES-GCM under a key derived from caller-supplied key
// material, so a snapshot lifted from disk is unreadable without it.
//
// Reads fall back transparently: a stored value that fails to decode or
// decrypt is returned as-is, which lets a deployment upgrade from a
// plain store to a secure one without losing previously persisted data.
type Secure struct {
	inner Storage
	aead  cipher.AEAD
}

var _ Storage = (*Secure)(nil)

// NewSecure wraps inner with AES-GCM encryption. Key material may be any
// non-empty secret; it is stretched to a 256-bit key with SHA-256.
func NewSecure(inner Storage, keyMaterial []byte) (*Secure, error) {
	if inner == nil {
		return nil, ErrStorageUnavailable
	}
	if len(keyMaterial) == 0 {
		return nil, ErrInvalidKeyMaterial
	}

	key := sha256.Sum256(keyMaterial)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Join(ErrInvalidKeyMaterial, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(ErrInvalidKeyMaterial, err)
	}
	return &Secure{inner: inner, aead: aead}, nil
}

// NewPreferred returns a Secure store over inner when key material is
// usable, or inner itself otherwise. Callers get the strongest store
// available without handling the failure themselves.
func NewPreferred(inner Storage, keyMaterial []byte) Storage {
	sec, err := NewSecure(inner, keyMaterial)
	if err != nil {
		return inner
	}
	return sec
}

// GetString retrieves and decrypts the value for key. Values that were
// not written by this decorator are passed through unchanged.
func (s *Secure) GetString(ctx context.Context, key string) (string, bool, error) {
	stored, ok, err := s.inner.GetString(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}

	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return stored, true, nil
	}
	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize {
		return stored, true, nil
	}
	plain, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return stored, true, nil
	}
	return string(plain), true, nil
}

// SetString encrypts value and stores the sealed form in the inner store.
func (s *Secure) SetString(ctx context.Context, key, value string) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(value), nil)
	return s.inner.SetString(ctx, key, base64.StdEncoding.EncodeToString(sealed))
}

// Remove deletes the key from the inner store.
func (s *Secure) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}
