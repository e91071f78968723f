// Package cardcrypto protects card numbers at rest and masks them for display.
//
// PANs are sealed with AES-256-GCM under a single process-wide key. The wire
// format is base64(nonce || ciphertext || tag) with a fresh random 96-bit
// nonce per call. Nothing in this package logs its inputs or outputs.
package cardcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	apperrors "bankcards/internal/errors"
)

const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
)

var (
	ErrInvalidKey         = errors.New("encryption key must be 32 bytes after base64 decoding")
	ErrCiphertextTooShort = errors.New("ciphertext shorter than nonce")
)

// Codec encrypts and decrypts PANs. It is safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewCodec builds a codec from a base64-encoded 32-byte key.
func NewCodec(base64Key string) (*Codec, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}

	return &Codec{aead: aead, rand: rand.Reader}, nil
}

// Encrypt seals plaintext under a fresh nonce.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", apperrors.CryptoFailure(fmt.Errorf("failed to generate nonce: %w", err))
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Any malformed or tampered input
// yields a CRYPTO_FAILURE error and no plaintext.
func (c *Codec) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", apperrors.CryptoFailure(err)
	}
	if len(data) < NonceSize {
		return "", apperrors.CryptoFailure(ErrCiphertextTooShort)
	}

	plaintext, err := c.aead.Open(nil, data[:NonceSize], data[NonceSize:], nil)
	if err != nil {
		return "", apperrors.CryptoFailure(err)
	}
	return string(plaintext), nil
}

// GenerateKey returns a random base64-encoded key suitable for NewCodec.
func GenerateKey() (string, error) {
	b := make([]byte, KeySize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
