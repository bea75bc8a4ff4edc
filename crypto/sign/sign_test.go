package sign

import (
	"testing"
)

// copied from official crypto.ed25519 tests
func TestVerifySignature(t *testing.T) {
	key, err := GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}

	message := []byte("test message")
	sig := key.Sign(message)

	pk, ok := key.Public()
	if !ok {
		t.Errorf("bad PK?")
	}

	if !pk.Verify(message, sig) {
		t.Errorf("valid signature rejected")
	}

	wrongMessage := []byte("wrong message")
	if pk.Verify(wrongMessage, sig) {
		t.Errorf("signature of different message accepted")
	}
}

func TestPublicKeyText(t *testing.T) {
	pk, _ := NewStaticTestKey("root").Public()
	got, err := ParsePublicKey(pk.String())
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(pk) {
		t.Error("Expect", pk, "got", got)
	}
	if _, err := ParsePublicKey("0OIl"); err != ErrBadKey {
		t.Error("Expect", ErrBadKey, "got", err)
	}
	if _, err := ParsePublicKey(pk.String()[:10]); err != ErrBadKey {
		t.Error("Expect", ErrBadKey, "got", err)
	}
}

func TestStaticTestKeyIsDeterministic(t *testing.T) {
	a, _ := NewStaticTestKey("alice").Public()
	b, _ := NewStaticTestKey("alice").Public()
	c, _ := NewStaticTestKey("bob").Public()
	if !a.Equal(b) {
		t.Error("same seed produced different keys")
	}
	if a.Equal(c) {
		t.Error("different seeds produced the same key")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("fingerprints collide")
	}
}
