package protocol

import (
	"github.com/rodneysullivan/browserid/crypto/sign"
)

// An Assertion is a short-lived claim, signed with the key of a certified
// identity, that is only valid for Audience and until ExpiresAt.
// Assertions are created fresh for each sign-in attempt and never
// persisted.
type Assertion struct {
	Audience  string
	ExpiresAt Timestamp
	Signature []byte

	raw string
}

// SignAssertion creates an assertion for audience signed with key.
func SignAssertion(key sign.PrivateKey, audience string,
	expiresAt Timestamp) (*Assertion, error) {
	if audience == "" {
		return nil, malformed("assertion without audience")
	}
	raw, err := signToken(&tokenClaims{
		Audience:  audience,
		ExpiresAt: expiresAt,
	}, key)
	if err != nil {
		return nil, err
	}
	return DecodeAssertion(raw)
}

// DecodeAssertion parses an assertion token without verifying it.
func DecodeAssertion(raw string) (*Assertion, error) {
	tok, err := parseToken(raw)
	if err != nil {
		return nil, err
	}
	if !tok.claims.isAssertion() {
		return nil, malformed("token is not an assertion")
	}
	return &Assertion{
		Audience:  tok.claims.Audience,
		ExpiresAt: tok.claims.ExpiresAt,
		Signature: tok.signature,
		raw:       raw,
	}, nil
}

// Raw returns the signed token of a.
func (a *Assertion) Raw() string {
	return a.raw
}

// SigningInput returns the bytes covered by a.Signature.
func (a *Assertion) SigningInput() []byte {
	return signingInput(a.raw)
}

// VerifySignature checks a.Signature against key.
func (a *Assertion) VerifySignature(key sign.PublicKey) bool {
	return a.raw != "" && key.Verify(a.SigningInput(), a.Signature)
}
