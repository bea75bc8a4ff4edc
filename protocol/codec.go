// Encodes and decodes the compact signed-token format shared by
// certificates and assertions, and the bundle format joining a
// certificate chain with an assertion.

package protocol

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rodneysullivan/browserid/crypto/sign"
	"golang.org/x/crypto/ed25519"
)

// BundleSeparator joins the tokens of a bundle. It is outside the
// base64url alphabet, so it never occurs inside a token.
const BundleSeparator = "~"

type keyClaim struct {
	Algorithm string `json:"algorithm"`
	Key       string `json:"key"`
}

type principalClaim struct {
	Email string `json:"email"`
}

// tokenClaims is the claim set of both token kinds. Certificates carry
// iss, iat, exp, public-key, issuer-key and principal; assertions carry
// aud and exp only.
type tokenClaims struct {
	Issuer    string          `json:"iss,omitempty"`
	Audience  string          `json:"aud,omitempty"`
	IssuedAt  Timestamp       `json:"iat,omitempty"`
	ExpiresAt Timestamp       `json:"exp"`
	PublicKey *keyClaim       `json:"public-key,omitempty"`
	IssuerKey *keyClaim       `json:"issuer-key,omitempty"`
	Principal *principalClaim `json:"principal,omitempty"`
}

var _ jwt.Claims = (*tokenClaims)(nil)

// The jwt.Claims accessors exist to satisfy the interface. Tokens are
// always parsed without the library's time validation; windows are
// checked against server time by the chain and assertion packages.

func (c *tokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(c.ExpiresAt.Time()), nil
}

func (c *tokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(c.IssuedAt.Time()), nil
}

func (c *tokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

func (c *tokenClaims) GetIssuer() (string, error) {
	return c.Issuer, nil
}

func (c *tokenClaims) GetSubject() (string, error) {
	if c.Principal == nil {
		return "", nil
	}
	return c.Principal.Email, nil
}

func (c *tokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	if c.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Audience}, nil
}

func (c *tokenClaims) isCertificate() bool {
	return c.Principal != nil && c.PublicKey != nil && c.IssuerKey != nil &&
		c.Audience == ""
}

func (c *tokenClaims) isAssertion() bool {
	return c.Audience != "" && c.Principal == nil && c.PublicKey == nil &&
		c.IssuerKey == nil
}

func newKeyClaim(pk sign.PublicKey) *keyClaim {
	return &keyClaim{Algorithm: sign.Algorithm, Key: pk.String()}
}

func (k *keyClaim) publicKey() (sign.PublicKey, error) {
	if k.Algorithm != sign.Algorithm {
		return nil, malformed("unsupported key algorithm %q", k.Algorithm)
	}
	pk, err := sign.ParsePublicKey(k.Key)
	if err != nil {
		return nil, malformed("%v", err)
	}
	return pk, nil
}

// signToken signs claims with key and returns the compact token.
func signToken(claims *tokenClaims, key sign.PrivateKey) (string, error) {
	if len(key) != sign.PrivateKeySize {
		return "", sign.ErrBadKey
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return tok.SignedString(ed25519.PrivateKey(key))
}

// parsedToken is a decoded but unverified token.
type parsedToken struct {
	raw       string
	claims    *tokenClaims
	signature []byte
}

var parser = jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))

// parseToken decodes a compact token. Every failure is ErrMalformed.
func parseToken(raw string) (*parsedToken, error) {
	claims := new(tokenClaims)
	tok, parts, err := parser.ParseUnverified(raw, claims)
	if err != nil {
		return nil, malformed("%v", err)
	}
	if tok.Method == nil || tok.Method.Alg() != jwt.SigningMethodEdDSA.Alg() {
		return nil, malformed("unexpected signing method")
	}
	sig, err := parser.DecodeSegment(parts[2])
	if err != nil {
		return nil, malformed("%v", err)
	}
	if len(sig) != sign.SignatureSize {
		return nil, malformed("signature must be %d bytes (got %d)",
			sign.SignatureSize, len(sig))
	}
	return &parsedToken{raw: raw, claims: claims, signature: sig}, nil
}

// signingInput returns the part of raw covered by the signature.
func signingInput(raw string) []byte {
	return []byte(raw[:strings.LastIndex(raw, ".")])
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrMalformed}, args...)...)
}

// EncodeBundle joins the certificate chain and the assertion of b.
// Only signed (issued or decoded) parts can be encoded.
func EncodeBundle(b *Bundle) (string, error) {
	if b == nil || b.Assertion == nil {
		return "", malformed("bundle without assertion")
	}
	if len(b.Certificates) == 0 {
		return "", ErrEmptyChain
	}
	parts := make([]string, 0, len(b.Certificates)+1)
	for _, cert := range b.Certificates {
		if cert == nil || cert.raw == "" {
			return "", malformed("unsigned certificate")
		}
		parts = append(parts, cert.raw)
	}
	if b.Assertion.raw == "" {
		return "", malformed("unsigned assertion")
	}
	parts = append(parts, b.Assertion.raw)
	return strings.Join(parts, BundleSeparator), nil
}

// DecodeBundle parses the output of EncodeBundle. Truncated or reordered
// input yields an error wrapping ErrMalformed.
func DecodeBundle(s string) (*Bundle, error) {
	parts := strings.Split(s, BundleSeparator)
	if len(parts) < 2 {
		return nil, malformed("bundle needs at least one certificate and an assertion")
	}
	b := &Bundle{
		Certificates: make([]*Certificate, 0, len(parts)-1),
	}
	for _, p := range parts[:len(parts)-1] {
		cert, err := DecodeCertificate(p)
		if err != nil {
			return nil, err
		}
		b.Certificates = append(b.Certificates, cert)
	}
	a, err := DecodeAssertion(parts[len(parts)-1])
	if err != nil {
		return nil, err
	}
	b.Assertion = a
	return b, nil
}
