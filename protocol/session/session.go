// Package session implements the user side of sign-in: certified key
// pairs kept per email address, assertion bundles for relying sites, and
// waits for out-of-band email confirmation.
package session

import (
	"context"
	"fmt"

	"github.com/rodneysullivan/browserid/crypto/sign"
	"github.com/rodneysullivan/browserid/protocol"
	"github.com/rodneysullivan/browserid/protocol/assertion"
	"github.com/rodneysullivan/browserid/protocol/chain"
)

// A Certifier asks the server to certify pk for email.
type Certifier interface {
	Certify(ctx context.Context, email string, pk sign.PublicKey) (*protocol.Certificate, error)
}

// Store is the identity store a Session reads and writes.
type Store interface {
	Identity(email string) (*protocol.Identity, error)
	PutIdentity(id *protocol.Identity) error
	SetSiteEmail(origin, email string) error
	Logout() error
}

// A Session holds the collaborators needed to produce assertions. Clock
// must report server time; Root is the key certificates returned by the
// Certifier must chain to.
type Session struct {
	Store     Store
	Clock     protocol.Clock
	Certifier Certifier
	Generator *assertion.Generator
	Root      sign.PublicKey
}

// SyncEmailKeypair generates a fresh key pair for email, has it
// certified and stores the certified identity. Nothing is stored if
// certification fails or the certificate does not certify email.
func (s *Session) SyncEmailKeypair(ctx context.Context, email string) (*protocol.Identity, error) {
	if !protocol.ValidEmail(email) {
		return nil, fmt.Errorf("%w: %s", protocol.ErrInvalidEmail, email)
	}
	kp, err := protocol.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	cert, err := s.Certifier.Certify(ctx, email, kp.PublicKey)
	if err != nil {
		return nil, err
	}
	subject, err := chain.ValidateFor([]*protocol.Certificate{cert}, s.Root,
		s.Clock.Now(), email)
	if err != nil {
		return nil, err
	}
	if !subject.PublicKey.Equal(kp.PublicKey) {
		return nil, protocol.ErrPrincipalMismatch
	}

	id := &protocol.Identity{Email: email, Type: protocol.Secondary}
	if old, err := s.Store.Identity(email); err != nil {
		return nil, err
	} else if old != nil && old.Type != "" {
		id.Type = old.Type
	}
	id.KeyPair = kp
	id.Cert = cert
	if err := s.Store.PutIdentity(id); err != nil {
		return nil, err
	}
	return id, nil
}

// GetAssertion returns an encoded bundle proving email to origin, or ""
// if email is unknown or holds no certificate valid now. On success it
// remembers email as the address last used at origin.
func (s *Session) GetAssertion(email, origin string) (string, error) {
	id, err := s.Store.Identity(email)
	if err != nil {
		return "", err
	}
	now := s.Clock.Now()
	if id == nil || !id.HasValidCert(now) {
		return "", nil
	}
	b, err := s.Generator.Bundle(id, origin, now)
	if err != nil {
		return "", err
	}
	encoded, err := protocol.EncodeBundle(b)
	if err != nil {
		return "", err
	}
	if err := s.Store.SetSiteEmail(origin, email); err != nil {
		return "", err
	}
	return encoded, nil
}

// Logout destroys every stored identity.
func (s *Session) Logout() error {
	return s.Store.Logout()
}
