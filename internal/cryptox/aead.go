package cryptox

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/dmitrijs2005/webxfer/internal/common"
	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize is the width of the nonce prefix of every ciphertext.
const NonceSize = chacha20poly1305.NonceSize

// Encrypt seals plaintext with ChaCha20-Poly1305 under key.
//
// A fresh random 12-byte nonce is drawn for every call and prepended to the
// output, so the result is nonce || ciphertext || tag. No associated data is
// used.
func Encrypt(plaintext []byte, key Key) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}

	out := make([]byte, NonceSize, NonceSize+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	return aead.Seal(out, out[:NonceSize], plaintext, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
//
// Any failure (wrong key, tampering, truncated input) is reported as
// common.ErrAuthenticationFailed and no plaintext is returned.
func Decrypt(ciphertext []byte, key Key) ([]byte, error) {
	if len(ciphertext) < NonceSize {
		return nil, common.ErrAuthenticationFailed
	}

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, ciphertext[:NonceSize], ciphertext[NonceSize:], nil)
	if err != nil {
		return nil, common.ErrAuthenticationFailed
	}

	return plaintext, nil
}
