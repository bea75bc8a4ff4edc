// Package assertion generates assertions from held identities and
// verifies assertion bundles presented to relying sites.
package assertion

import (
	"time"

	"github.com/rodneysullivan/browserid/crypto/sign"
	"github.com/rodneysullivan/browserid/protocol"
	"github.com/rodneysullivan/browserid/protocol/chain"
)

// DefaultWindow is the assertion lifetime used when Generator.Window
// is zero.
const DefaultWindow = 2 * time.Minute

// A Generator signs assertions that expire Window after the supplied
// server time.
type Generator struct {
	Window time.Duration
}

func (g *Generator) window() time.Duration {
	if g == nil || g.Window <= 0 {
		return DefaultWindow
	}
	return g.Window
}

// Generate signs a new assertion for audience with the key pair of id.
// now must be server time.
func (g *Generator) Generate(id *protocol.Identity, audience string,
	now protocol.Timestamp) (*protocol.Assertion, error) {
	if id == nil || id.KeyPair == nil {
		return nil, protocol.ErrMissingKey
	}
	aud, err := protocol.NormalizeOrigin(audience)
	if err != nil {
		return nil, err
	}
	return protocol.SignAssertion(id.KeyPair.PrivateKey, aud,
		now.Add(g.window()))
}

// Bundle generates an assertion for audience and joins it with the
// certificate of id. The certificate must be valid at now.
func (g *Generator) Bundle(id *protocol.Identity, audience string,
	now protocol.Timestamp) (*protocol.Bundle, error) {
	if id == nil || !id.HasValidCert(now) {
		return nil, protocol.ErrMissingKey
	}
	a, err := g.Generate(id, audience, now)
	if err != nil {
		return nil, err
	}
	return &protocol.Bundle{
		Certificates: []*protocol.Certificate{id.Cert},
		Assertion:    a,
	}, nil
}

// A Result describes a verified bundle.
type Result struct {
	Email     string
	Audience  string
	ExpiresAt protocol.Timestamp
	Issuer    string
}

// Verify validates the chain of b against root, then checks that the
// assertion is signed by the chain's terminal subject key, that it is
// scoped to exactly audience and that it has not expired at now.
//
// Expired assertions and certificates fail with errors for which
// protocol.Retryable reports true; forged, misdirected and malformed
// bundles never do.
func Verify(b *protocol.Bundle, root sign.PublicKey, audience string,
	now protocol.Timestamp) (*Result, error) {
	if b == nil || b.Assertion == nil {
		return nil, protocol.ErrMalformed
	}
	subject, err := chain.Validate(b.Certificates, root, now)
	if err != nil {
		return nil, err
	}
	if !b.Assertion.VerifySignature(subject.PublicKey) {
		return nil, protocol.ErrBadSignature
	}
	if !protocol.SameOrigin(b.Assertion.Audience, audience) {
		return nil, protocol.ErrAudienceMismatch
	}
	if now > b.Assertion.ExpiresAt {
		return nil, protocol.ErrExpired
	}
	return &Result{
		Email:     subject.Email,
		Audience:  b.Assertion.Audience,
		ExpiresAt: b.Assertion.ExpiresAt,
		Issuer:    subject.Issuer,
	}, nil
}

// VerifyEncoded decodes an encoded bundle and verifies it.
func VerifyEncoded(encoded string, root sign.PublicKey, audience string,
	now protocol.Timestamp) (*Result, error) {
	b, err := protocol.DecodeBundle(encoded)
	if err != nil {
		return nil, err
	}
	return Verify(b, root, audience, now)
}
