package protocol

import (
	"encoding/json"

	"github.com/rodneysullivan/browserid/crypto/sign"
)

// A Certificate is a statement by an issuer, signed with the issuer's
// key, binding PublicKey to the email Principal between IssuedAt and
// ExpiresAt.
//
// IssuerKey records the key the issuer signed with. For the first
// certificate of a chain this is a trust root or an identity provider's
// published key; for later certificates it is the previous certificate's
// subject key.
//
// Certificates are immutable. They are created by IssueCertificate or
// DecodeCertificate and keep the exact token they were decoded from, so
// encoding one never invalidates its signature.
type Certificate struct {
	Issuer    string
	IssuerKey sign.PublicKey
	PublicKey sign.PublicKey
	Principal string
	IssuedAt  Timestamp
	ExpiresAt Timestamp
	Signature []byte

	raw string
}

// IssueCertificate creates a certificate for principal and subject,
// signed with issuerKey.
func IssueCertificate(issuer string, issuerKey sign.PrivateKey,
	principal string, subject sign.PublicKey,
	issuedAt, expiresAt Timestamp) (*Certificate, error) {
	issuerPub, ok := issuerKey.Public()
	if !ok || len(subject) != sign.PublicKeySize {
		return nil, sign.ErrBadKey
	}
	raw, err := signToken(&tokenClaims{
		Issuer:    issuer,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		PublicKey: newKeyClaim(subject),
		IssuerKey: newKeyClaim(issuerPub),
		Principal: &principalClaim{Email: principal},
	}, issuerKey)
	if err != nil {
		return nil, err
	}
	return DecodeCertificate(raw)
}

// DecodeCertificate parses a certificate token without verifying it.
func DecodeCertificate(raw string) (*Certificate, error) {
	tok, err := parseToken(raw)
	if err != nil {
		return nil, err
	}
	c := tok.claims
	if !c.isCertificate() {
		return nil, malformed("token is not a certificate")
	}
	pk, err := c.PublicKey.publicKey()
	if err != nil {
		return nil, err
	}
	ik, err := c.IssuerKey.publicKey()
	if err != nil {
		return nil, err
	}
	return &Certificate{
		Issuer:    c.Issuer,
		IssuerKey: ik,
		PublicKey: pk,
		Principal: c.Principal.Email,
		IssuedAt:  c.IssuedAt,
		ExpiresAt: c.ExpiresAt,
		Signature: tok.signature,
		raw:       raw,
	}, nil
}

// Raw returns the signed token of c.
func (c *Certificate) Raw() string {
	return c.raw
}

// SigningInput returns the bytes covered by c.Signature.
func (c *Certificate) SigningInput() []byte {
	return signingInput(c.raw)
}

// VerifySignature checks c.Signature against key.
func (c *Certificate) VerifySignature(key sign.PublicKey) bool {
	return c.raw != "" && key.Verify(c.SigningInput(), c.Signature)
}

// ValidAt reports whether now is inside c's validity window.
func (c *Certificate) ValidAt(now Timestamp) bool {
	return c.IssuedAt <= now && now <= c.ExpiresAt
}

// MarshalJSON stores a certificate as its token.
func (c *Certificate) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.raw)
}

// UnmarshalJSON restores a certificate stored by MarshalJSON.
func (c *Certificate) UnmarshalJSON(m []byte) error {
	var raw string
	if err := json.Unmarshal(m, &raw); err != nil {
		return err
	}
	dec, err := DecodeCertificate(raw)
	if err != nil {
		return err
	}
	*c = *dec
	return nil
}
