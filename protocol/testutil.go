package protocol

import (
	"fmt"
	"testing"
	"time"

	"github.com/rodneysullivan/browserid/crypto/sign"
)

// TestIssuer is the issuer name used by NewTestChain.
const TestIssuer = "login.example.org"

// NewTestChain issues a chain of depth certificates for email, the first
// signed by root and every later one by the previous subject key. All
// certificates are valid for one hour from now. It returns the chain and
// the private key of the terminal subject.
func NewTestChain(t *testing.T, root sign.PrivateKey, email string,
	depth int, now Timestamp) ([]*Certificate, sign.PrivateKey) {
	issuerKey := root
	var certs []*Certificate
	for i := 0; i < depth; i++ {
		subject := sign.NewStaticTestKey(fmt.Sprintf("%s/%d", email, i))
		pk, _ := subject.Public()
		cert, err := IssueCertificate(TestIssuer, issuerKey, email, pk,
			now, now.Add(time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		certs = append(certs, cert)
		issuerKey = subject
	}
	return certs, issuerKey
}

// NewTestBundle returns a one-certificate bundle for email with an
// assertion for audience expiring two minutes after now.
func NewTestBundle(t *testing.T, root sign.PrivateKey, email, audience string,
	now Timestamp) *Bundle {
	certs, key := NewTestChain(t, root, email, 1, now)
	a, err := SignAssertion(key, audience, now.Add(2*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	return &Bundle{Certificates: certs, Assertion: a}
}
