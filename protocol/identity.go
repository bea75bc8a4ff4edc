package protocol

import (
	"github.com/rodneysullivan/browserid/crypto/sign"
)

// AccountType tells who certifies an identity.
type AccountType string

const (
	// Secondary identities are certified internally after password
	// authentication.
	Secondary AccountType = "secondary"
	// Primary identities are certified by the email domain's own
	// identity provider.
	Primary AccountType = "primary"
)

// AuthLevel is the authentication level of the current session as
// reported by the server.
type AuthLevel string

const (
	AuthNone      AuthLevel = ""
	AuthAssertion AuthLevel = "assertion"
	AuthPassword  AuthLevel = "password"
)

// Satisfies reports whether level l is at least required.
func (l AuthLevel) Satisfies(required AuthLevel) bool {
	rank := map[AuthLevel]int{AuthNone: 0, AuthAssertion: 1, AuthPassword: 2}
	return rank[l] >= rank[required]
}

// A KeyPair authenticates exactly one Identity. It never leaves the user
// agent.
type KeyPair struct {
	Algorithm  string          `json:"algorithm"`
	PublicKey  sign.PublicKey  `json:"public_key"`
	PrivateKey sign.PrivateKey `json:"private_key"`
}

// GenerateKeyPair creates a fresh key pair.
func GenerateKeyPair() (*KeyPair, error) {
	sk, err := sign.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	pk, ok := sk.Public()
	if !ok {
		return nil, sign.ErrBadKey
	}
	return &KeyPair{Algorithm: sign.Algorithm, PublicKey: pk, PrivateKey: sk}, nil
}

// An Identity is an email address the user controls, with the key pair
// and certificate of the current sign-in session if any.
type Identity struct {
	Email   string       `json:"email"`
	Type    AccountType  `json:"type,omitempty"`
	KeyPair *KeyPair     `json:"keypair,omitempty"`
	Cert    *Certificate `json:"cert,omitempty"`
}

// HasValidCert reports whether the identity holds a certificate for its
// email that is valid at now.
func (id *Identity) HasValidCert(now Timestamp) bool {
	return id.Cert != nil && id.Cert.Principal == id.Email &&
		id.Cert.ValidAt(now)
}
