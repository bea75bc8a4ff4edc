package verifier

import (
	"os"
	"path"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rodneysullivan/browserid/application"
	apptestutil "github.com/rodneysullivan/browserid/application/testutil"
	"github.com/rodneysullivan/browserid/crypto/sign"
	"github.com/rodneysullivan/browserid/protocol"
)

const audience = "https://example.com"

var (
	rootKey = sign.NewStaticTestKey("trust root")
	idpKey  = sign.NewStaticTestKey("login.example.org")
	now     = protocol.TimestampOf(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
)

func writeKey(t *testing.T, dir, name string, sk sign.PrivateKey) {
	pk, _ := sk.Public()
	if err := os.WriteFile(path.Join(dir, name), pk, 0644); err != nil {
		t.Fatal(err)
	}
}

// newTestConfig saves and reloads a config listening on a fresh unix
// socket, and returns it with the socket path.
func newTestConfig(t *testing.T, withIdP bool) (*Config, string) {
	dir := t.TempDir()
	writeKey(t, dir, "root.pub", rootKey)
	writeKey(t, dir, "idp.pub", idpKey)

	unix, sock := apptestutil.UnixAddress(t)
	file := path.Join(dir, "config.toml")
	conf := NewConfig(file, "toml",
		[]*application.ServerAddress{{Address: unix}},
		&application.LoggerConfig{Environment: "development"},
		"root.pub")
	if withIdP {
		conf.Issuers = []*Issuer{{Domain: protocol.TestIssuer, PubKeyPath: "idp.pub"}}
	}
	if err := conf.Save(); err != nil {
		t.Fatal(err)
	}

	var loaded Config
	if err := loaded.Load(file, "toml"); err != nil {
		t.Fatal(err)
	}
	return &loaded, sock
}

func newTestVerifier(t *testing.T, withIdP bool) (*Verifier, string) {
	conf, sock := newTestConfig(t, withIdP)
	v, err := New(conf)
	if err != nil {
		t.Fatal(err)
	}
	v.SetClock(protocol.FixedClock(now))
	if err := v.Run(conf.Addresses, ""); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { v.Shutdown() })
	return v, sock
}

func encode(t *testing.T, b *protocol.Bundle) string {
	s, err := protocol.EncodeBundle(b)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func send(t *testing.T, sock, bundle, aud string) *application.Response {
	msg, err := application.MarshalRequest(bundle, aud)
	if err != nil {
		t.Fatal(err)
	}
	rev, err := apptestutil.NewUnixClient(sock, msg)
	if err != nil {
		t.Fatal(err)
	}
	return application.UnmarshalResponse(rev)
}

func TestLoadConfig(t *testing.T) {
	conf, _ := newTestConfig(t, true)
	pk, _ := rootKey.Public()
	if !conf.TrustRoot.Equal(pk) {
		t.Error("Expect trust root", pk, "got", conf.TrustRoot)
	}
	if len(conf.Issuers) != 1 || conf.Issuers[0].Domain != protocol.TestIssuer {
		t.Fatal("Expect one issuer", protocol.TestIssuer, "got", conf.Issuers)
	}
	idp, _ := idpKey.Public()
	if !conf.Issuers[0].PublicKey.Equal(idp) {
		t.Error("Expect issuer key", idp, "got", conf.Issuers[0].PublicKey)
	}
	if conf.Logger == nil || conf.Logger.Environment != "development" {
		t.Error("Cannot load the logger config", "got", conf.Logger)
	}
}

func TestLoadConfigMissingTrustRoot(t *testing.T) {
	dir := t.TempDir()
	file := path.Join(dir, "config.toml")
	conf := NewConfig(file, "toml", nil,
		&application.LoggerConfig{Environment: "development"}, "missing.pub")
	if err := conf.Save(); err != nil {
		t.Fatal(err)
	}
	var loaded Config
	if err := loaded.Load(file, "toml"); err == nil {
		t.Error("Expect an error for a missing trust root key")
	}
}

func TestVerifyOverSocket(t *testing.T) {
	v, sock := newTestVerifier(t, false)
	bundle := encode(t, protocol.NewTestBundle(t, rootKey,
		"alice@example.com", audience, now))

	res := send(t, sock, bundle, audience)
	if !res.OK() {
		t.Fatal("Expect", application.StatusOkay, "got", res.Reason)
	}
	if res.Email != "alice@example.com" || res.Audience != audience ||
		res.Issuer != protocol.TestIssuer {
		t.Error("Unexpected response", res)
	}
	if res.Expires != now.Add(2*time.Minute) {
		t.Error("Expect expiry", now.Add(2*time.Minute), "got", res.Expires)
	}

	res = send(t, sock, bundle, "https://evil.example.com")
	if res.OK() || res.Reason != "audience_mismatch" {
		t.Error("Expect", "audience_mismatch", "got", res.Reason)
	}

	res = send(t, sock, "garbage~garbage", audience)
	if res.OK() || res.Reason != "malformed" {
		t.Error("Expect", "malformed", "got", res.Reason)
	}

	counters := v.Metrics().verifications
	if got := testutil.ToFloat64(counters.WithLabelValues(ResultOkay)); got != 1 {
		t.Error("Expect 1 okay verification", "got", got)
	}
	if got := testutil.ToFloat64(counters.WithLabelValues("audience_mismatch")); got != 1 {
		t.Error("Expect 1 audience mismatch", "got", got)
	}
	if got := testutil.ToFloat64(counters.WithLabelValues("malformed")); got != 1 {
		t.Error("Expect 1 malformed request", "got", got)
	}
}

func TestVerifyExpiredAtServerTime(t *testing.T) {
	v, _ := newTestVerifier(t, false)
	bundle := encode(t, protocol.NewTestBundle(t, rootKey,
		"alice@example.com", audience, now))

	v.SetClock(protocol.FixedClock(now.Add(3 * time.Minute)))
	_, err := v.Verify(bundle, audience)
	if err != protocol.ErrExpired {
		t.Error("Expect", protocol.ErrExpired, "got", err)
	}
	if !protocol.Retryable(err) {
		t.Error("Expect an expired assertion to be retryable")
	}
}

func TestVerifyUntrustedRoot(t *testing.T) {
	v, _ := newTestVerifier(t, false)
	other := sign.NewStaticTestKey("someone else")
	bundle := encode(t, protocol.NewTestBundle(t, other,
		"alice@example.com", audience, now))
	if _, err := v.Verify(bundle, audience); err != protocol.ErrChainBroken {
		t.Error("Expect", protocol.ErrChainBroken, "got", err)
	}
}

func TestVerifyIdentityProvider(t *testing.T) {
	v, _ := newTestVerifier(t, true)

	// the provider certifies its own domain
	bundle := encode(t, protocol.NewTestBundle(t, idpKey,
		"bob@login.example.org", audience, now))
	res, err := v.Verify(bundle, audience)
	if err != nil {
		t.Fatal(err)
	}
	if res.Email != "bob@login.example.org" {
		t.Error("Expect", "bob@login.example.org", "got", res.Email)
	}

	// but no other
	bundle = encode(t, protocol.NewTestBundle(t, idpKey,
		"alice@example.com", audience, now))
	if _, err := v.Verify(bundle, audience); err != protocol.ErrPrincipalMismatch {
		t.Error("Expect", protocol.ErrPrincipalMismatch, "got", err)
	}

	// and the trust root cannot sign in its name
	bundle = encode(t, protocol.NewTestBundle(t, rootKey,
		"bob@login.example.org", audience, now))
	if _, err := v.Verify(bundle, audience); err != protocol.ErrChainBroken {
		t.Error("Expect", protocol.ErrChainBroken, "got", err)
	}

	// chains from other issuers still go to the trust root
	subject := sign.NewStaticTestKey("carol")
	pk, _ := subject.Public()
	cert, err := protocol.IssueCertificate("browserid.org", rootKey,
		"carol@example.net", pk, now, now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	a, err := protocol.SignAssertion(subject, audience, now.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	bundle = encode(t, &protocol.Bundle{
		Certificates: []*protocol.Certificate{cert},
		Assertion:    a,
	})
	if _, err := v.Verify(bundle, audience); err != nil {
		t.Error("Expect a trust root chain to verify", "got", err)
	}
}

func TestReload(t *testing.T) {
	v, _ := newTestVerifier(t, false)
	bundle := encode(t, protocol.NewTestBundle(t, idpKey,
		"bob@login.example.org", audience, now))
	if _, err := v.Verify(bundle, audience); err == nil {
		t.Fatal("Expect an unknown provider to be rejected")
	}

	// add the provider to the config file and reload
	path, encoding := v.ConfigInfo()
	var conf Config
	if err := conf.Load(path, encoding); err != nil {
		t.Fatal(err)
	}
	conf.Issuers = []*Issuer{{Domain: protocol.TestIssuer, PubKeyPath: "idp.pub"}}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := conf.Save(); err != nil {
		t.Fatal(err)
	}
	v.Reload(v.reload)

	if _, err := v.Verify(bundle, audience); err != nil {
		t.Error("Expect the reloaded provider to be trusted", "got", err)
	}
}
