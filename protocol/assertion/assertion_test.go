package assertion

import (
	"errors"
	"testing"
	"time"

	"github.com/rodneysullivan/browserid/crypto/sign"
	"github.com/rodneysullivan/browserid/protocol"
)

var (
	rootKey   = sign.NewStaticTestKey("trust root")
	rootPK, _ = rootKey.Public()
	now       = protocol.Timestamp(1500000000000)
	audience  = "https://rp.example.net"
)

func newIdentity(t *testing.T, email string) *protocol.Identity {
	kp, err := protocol.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	cert, err := protocol.IssueCertificate(protocol.TestIssuer, rootKey,
		email, kp.PublicKey, now, now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	return &protocol.Identity{
		Email:   email,
		Type:    protocol.Secondary,
		KeyPair: kp,
		Cert:    cert,
	}
}

func TestGeneratedBundleVerifies(t *testing.T) {
	var g Generator
	for _, aud := range []string{audience, "http://localhost:10001",
		"https://RP.example.net:443"} {
		id := newIdentity(t, "alice@example.com")
		b, err := g.Bundle(id, aud, now)
		if err != nil {
			t.Fatal(err)
		}
		for _, ts := range []protocol.Timestamp{now, now.Add(time.Minute),
			now.Add(DefaultWindow)} {
			res, err := Verify(b, rootPK, aud, ts)
			if err != nil {
				t.Fatal("Expect a valid assertion at", ts, "got", err)
			}
			if res.Email != "alice@example.com" || res.Issuer != protocol.TestIssuer {
				t.Error("Unexpected result", res.Email, res.Issuer)
			}
			if res.ExpiresAt != now.Add(DefaultWindow) {
				t.Error("Expect", now.Add(DefaultWindow), "got", res.ExpiresAt)
			}
		}
	}
}

func TestVerifyEncoded(t *testing.T) {
	var g Generator
	b, err := g.Bundle(newIdentity(t, "alice@example.com"), audience, now)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := protocol.EncodeBundle(b)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := VerifyEncoded(enc, rootPK, audience, now); err != nil {
		t.Error(err)
	}
	if _, err := VerifyEncoded(enc[:len(enc)/2], rootPK, audience, now); !errors.Is(err, protocol.ErrMalformed) {
		t.Error("Expect", protocol.ErrMalformed, "got", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	g := Generator{Window: 30 * time.Second}
	b, err := g.Bundle(newIdentity(t, "alice@example.com"), audience, now)
	if err != nil {
		t.Fatal(err)
	}
	if b.Assertion.ExpiresAt != now.Add(30*time.Second) {
		t.Error("Expect custom window, got", b.Assertion.ExpiresAt)
	}
	_, err = Verify(b, rootPK, audience, b.Assertion.ExpiresAt+1)
	if err != protocol.ErrExpired {
		t.Fatal("Expect", protocol.ErrExpired, "got", err)
	}
	if !protocol.Retryable(err) {
		t.Error("Expect an expired assertion to be retryable")
	}
}

func TestVerifyAudienceMismatch(t *testing.T) {
	var g Generator
	b, err := g.Bundle(newIdentity(t, "alice@example.com"), audience, now)
	if err != nil {
		t.Fatal(err)
	}
	for _, other := range []string{
		"http://rp.example.net",
		"https://rp.example.net:8443",
		"https://evil.example.net",
		"https://www.rp.example.net",
		"",
	} {
		_, err := Verify(b, rootPK, other, now)
		if err != protocol.ErrAudienceMismatch {
			t.Error("Expect", protocol.ErrAudienceMismatch, "for", other, "got", err)
		}
		if protocol.Retryable(err) {
			t.Error("Expect audience mismatch not to be retryable")
		}
	}
}

func TestVerifyBadSignature(t *testing.T) {
	id := newIdentity(t, "alice@example.com")
	// signed with a key the certificate does not bind
	other, err := protocol.SignAssertion(sign.NewStaticTestKey("mallory"),
		audience, now.Add(DefaultWindow))
	if err != nil {
		t.Fatal(err)
	}
	b := &protocol.Bundle{Certificates: []*protocol.Certificate{id.Cert}, Assertion: other}
	if _, err := Verify(b, rootPK, audience, now); err != protocol.ErrBadSignature {
		t.Error("Expect", protocol.ErrBadSignature, "got", err)
	}
}

func TestVerifyChainErrors(t *testing.T) {
	var g Generator
	b, err := g.Bundle(newIdentity(t, "alice@example.com"), audience, now)
	if err != nil {
		t.Fatal(err)
	}
	otherPK, _ := sign.NewStaticTestKey("other root").Public()
	if _, err := Verify(b, otherPK, audience, now); err != protocol.ErrChainBroken {
		t.Error("Expect", protocol.ErrChainBroken, "got", err)
	}
	if _, err := Verify(b, rootPK, audience, now.Add(2*time.Hour)); err != protocol.ErrExpiredCertificate {
		t.Error("Expect", protocol.ErrExpiredCertificate, "got", err)
	}
	if _, err := Verify(&protocol.Bundle{Assertion: b.Assertion}, rootPK, audience, now); err != protocol.ErrEmptyChain {
		t.Error("Expect", protocol.ErrEmptyChain, "got", err)
	}
	if _, err := Verify(nil, rootPK, audience, now); err != protocol.ErrMalformed {
		t.Error("Expect", protocol.ErrMalformed, "got", err)
	}
}

func TestGenerateMissingKey(t *testing.T) {
	var g Generator
	id := &protocol.Identity{Email: "alice@example.com"}
	if _, err := g.Generate(id, audience, now); err != protocol.ErrMissingKey {
		t.Error("Expect", protocol.ErrMissingKey, "got", err)
	}
	withKey := newIdentity(t, "alice@example.com")
	withKey.Cert = nil
	if _, err := g.Bundle(withKey, audience, now); err != protocol.ErrMissingKey {
		t.Error("Expect", protocol.ErrMissingKey, "got", err)
	}
	if _, err := g.Generate(newIdentity(t, "a@b.com"), "not an origin", now); err != protocol.ErrBadOrigin {
		t.Error("Expect", protocol.ErrBadOrigin, "got", err)
	}
}
