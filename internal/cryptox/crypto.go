// Package cryptox implements the envelope-encryption engine: AES-256-GCM
// payload protection plus the key derivations for the shared and personal
// key contexts.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/teamvault/teamvault/internal/common"
)

const (
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

// Encrypt protects plaintext with AES-256-GCM under the given 32-byte key.
// A fresh random nonce is generated per call. Ciphertext, nonce and
// authentication tag are returned separately so they can be persisted in
// distinct columns.
func Encrypt(plaintext, key []byte) (ciphertext, nonce, tag []byte, err error) {
	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, nil, err
	}

	// Seal appends the tag to the ciphertext; split it off.
	sealed := aesgcm.Seal(nil, nonce, plaintext, nil)
	n := len(sealed) - TagSize
	return sealed[:n], nonce, sealed[n:], nil
}

// Decrypt reverses Encrypt. The tag is verified before any plaintext is
// released; a mismatch, a truncated input or a wrong key all surface as
// common.ErrDecryptionFailed.
func Decrypt(ciphertext, nonce, tag, key []byte) ([]byte, error) {
	if len(nonce) != NonceSize || len(tag) != TagSize {
		return nil, common.ErrDecryptionFailed
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, common.ErrDecryptionFailed
	}

	return plaintext, nil
}
