// Package chain validates certificate chains.
//
// A chain is walked from issuer to subject. The first certificate must be
// signed by the trust root (or the identity provider key) supplied by the
// caller, and every later certificate by the subject key of the one
// before it. Every certificate must be inside its validity window at the
// supplied server time. Validation does no I/O.
package chain

import (
	"github.com/rodneysullivan/browserid/crypto/sign"
	"github.com/rodneysullivan/browserid/protocol"
)

// ValidatedSubject is the terminal subject of a valid chain.
type ValidatedSubject struct {
	Email     string
	PublicKey sign.PublicKey
	// Issuer is the issuer of the first certificate.
	Issuer string
	// ExpiresAt is the earliest expiry in the chain.
	ExpiresAt protocol.Timestamp
}

// Validate checks linkage, signature and validity window of every
// certificate in certs, in that order, and returns the first failure:
// protocol.ErrEmptyChain, protocol.ErrChainBroken,
// protocol.ErrSignatureInvalid or protocol.ErrExpiredCertificate.
func Validate(certs []*protocol.Certificate, root sign.PublicKey,
	now protocol.Timestamp) (*ValidatedSubject, error) {
	if len(certs) == 0 {
		return nil, protocol.ErrEmptyChain
	}
	issuerKey := root
	expires := certs[0].ExpiresAt
	for _, cert := range certs {
		if cert == nil {
			return nil, protocol.ErrMalformed
		}
		if !cert.IssuerKey.Equal(issuerKey) {
			return nil, protocol.ErrChainBroken
		}
		// Verify against the key we expect, not the claim.
		if !cert.VerifySignature(issuerKey) {
			return nil, protocol.ErrSignatureInvalid
		}
		if !cert.ValidAt(now) {
			return nil, protocol.ErrExpiredCertificate
		}
		if cert.ExpiresAt < expires {
			expires = cert.ExpiresAt
		}
		issuerKey = cert.PublicKey
	}
	last := certs[len(certs)-1]
	return &ValidatedSubject{
		Email:     last.Principal,
		PublicKey: last.PublicKey,
		Issuer:    certs[0].Issuer,
		ExpiresAt: expires,
	}, nil
}

// ValidateFor is Validate, additionally requiring that the terminal
// certificate certifies email. A mismatch is
// protocol.ErrPrincipalMismatch.
func ValidateFor(certs []*protocol.Certificate, root sign.PublicKey,
	now protocol.Timestamp, email string) (*ValidatedSubject, error) {
	subject, err := Validate(certs, root, now)
	if err != nil {
		return nil, err
	}
	if subject.Email != email {
		return nil, protocol.ErrPrincipalMismatch
	}
	return subject, nil
}
