// Package crypto seals control-protocol lines for the optional TCP listener.
//
// A 32-byte NaCl secretbox key is derived from the shared token with
// HKDF-SHA256. Each sealed message is laid out as
//
//	[ 24-byte nonce ][ ciphertext ]
//
// The Unix socket is never encrypted; callers pass a nil *Box there.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var hkdfInfo = []byte("clipstack-control-v1")

// ErrOpen is returned when a message cannot be authenticated, usually
// because the two sides use different tokens.
var ErrOpen = errors.New("crypto: decryption failed (wrong token?)")

// Box seals and opens messages with a token-derived key.
type Box struct {
	key   [keySize]byte
	token []byte
}

// NewBox derives a Box from token. Both sides must use the same token.
func NewBox(token string) (*Box, error) {
	if token == "" {
		return nil, errors.New("crypto: empty token")
	}
	b := &Box{token: []byte(token)}
	h := hkdf.New(sha256.New, b.token, nil, hkdfInfo)
	if _, err := io.ReadFull(h, b.key[:]); err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	return b, nil
}

// Seal encrypts plaintext, prepending a random nonce.
func (b *Box) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &b.key), nil
}

// Open decrypts nonce+ciphertext as produced by Seal.
func (b *Box) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, errors.New("crypto: ciphertext too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &b.key)
	if !ok {
		return nil, ErrOpen
	}
	return plain, nil
}

// CheckToken compares token with the Box's token in constant time.
func (b *Box) CheckToken(token string) bool {
	return subtle.ConstantTimeCompare(b.token, []byte(token)) == 1
}
