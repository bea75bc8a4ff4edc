// Package sign wraps ed25519 key pairs used to issue certificates and to
// sign assertions.
package sign

import (
	"crypto/rand"
	"errors"
	"io"

	"github.com/mr-tron/base58/base58"
	"github.com/rodneysullivan/browserid/crypto"
	"golang.org/x/crypto/ed25519"
)

const (
	// Algorithm names the signature scheme in key and token headers.
	Algorithm      = "Ed25519"
	PrivateKeySize = 64
	PublicKeySize  = 32
	SignatureSize  = ed25519.SignatureSize
)

// ErrBadKey is returned when a key has the wrong length or encoding.
var ErrBadKey = errors.New("[sign] Malformed key")

type PrivateKey ed25519.PrivateKey
type PublicKey ed25519.PublicKey

// GenerateKey creates a new key pair from rnd, or from crypto/rand when
// rnd is nil.
func GenerateKey(rnd io.Reader) (PrivateKey, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	_, sk, err := ed25519.GenerateKey(rnd)
	return PrivateKey(sk), err
}

func (key PrivateKey) Sign(message []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(key), message)
}

func (key PrivateKey) Public() (PublicKey, bool) {
	pk, ok := ed25519.PrivateKey(key).Public().(ed25519.PublicKey)
	return PublicKey(pk), ok
}

func (pk PublicKey) Verify(message, sig []byte) bool {
	if len(pk) != PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pk), message, sig)
}

// Equal reports whether pk and other hold the same key bytes.
func (pk PublicKey) Equal(other PublicKey) bool {
	return ed25519.PublicKey(pk).Equal(ed25519.PublicKey(other))
}

// String returns the base58 text form of the key, as carried in
// certificates.
func (pk PublicKey) String() string {
	return base58.Encode(pk)
}

// Fingerprint returns a short, stable identifier of the key for logs.
func (pk PublicKey) Fingerprint() string {
	return base58.Encode(crypto.Digest(pk)[:8])
}

// ParsePublicKey decodes the base58 text form produced by String.
func ParsePublicKey(s string) (PublicKey, error) {
	b, err := base58.Decode(s)
	if err != nil || len(b) != PublicKeySize {
		return nil, ErrBadKey
	}
	return PublicKey(b), nil
}
