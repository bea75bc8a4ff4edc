package application

import (
	"path"
	"testing"

	"github.com/rodneysullivan/browserid/application/testutil"
	"github.com/rodneysullivan/browserid/protocol"
)

func newTestServerBase(t *testing.T) *ServerBase {
	conf := NewCommonConfig("config.toml", "toml",
		&LoggerConfig{Environment: "development"})
	sb, err := NewServerBase(conf, "Listening")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sb.Shutdown() })
	return sb
}

func echoHandler(req *Request) *Response {
	if req.Audience == "https://bad.example.com" {
		return NewErrorResponse(protocol.ErrAudienceMismatch)
	}
	return &Response{Status: StatusOkay, Audience: req.Audience}
}

func TestResolveAndListen(t *testing.T) {
	dir := testutil.CreateTLSCertForTest(t)

	// test TCP network
	tcp, _ := testutil.TCPAddress(t)
	addr := &ServerAddress{
		Address:     tcp,
		TLSCertPath: path.Join(dir, "server.pem"),
		TLSKeyPath:  path.Join(dir, "server.key"),
	}
	ln, tlsConfig, err := addr.resolveAndListen()
	if err != nil {
		t.Fatal(err)
	}
	if tlsConfig == nil {
		t.Error("Expect a TLS config for a TCP address")
	}
	ln.Close()

	// test Unix network
	unix, _ := testutil.UnixAddress(t)
	addr = &ServerAddress{
		Address: unix,
	}
	ln, tlsConfig, err = addr.resolveAndListen()
	if err != nil {
		t.Fatal(err)
	}
	if tlsConfig != nil {
		t.Error("Expect no TLS config for a Unix address")
	}
	ln.Close()

	// test unknown network scheme
	addr = &ServerAddress{
		Address: "udp://127.0.0.1:3000",
	}
	if _, _, err := addr.resolveAndListen(); err == nil {
		t.Error("Expect an error for an unknown network type")
	}

	// test TCP without TLS material
	addr = &ServerAddress{
		Address: tcp,
	}
	if _, _, err := addr.resolveAndListen(); err == nil {
		t.Error("Expect an error for a TCP address without a certificate")
	}
}

func TestServeUnixSocket(t *testing.T) {
	sb := newTestServerBase(t)
	unix, sock := testutil.UnixAddress(t)
	if err := sb.ListenAndHandle(&ServerAddress{Address: unix}, echoHandler); err != nil {
		t.Fatal(err)
	}

	msg, err := MarshalRequest("bundle", "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	rev, err := testutil.NewUnixClient(sock, msg)
	if err != nil {
		t.Fatal(err)
	}
	res := UnmarshalResponse(rev)
	if !res.OK() || res.Audience != "https://example.com" {
		t.Error("Expect okay response for https://example.com", "got", res)
	}

	msg, _ = MarshalRequest("bundle", "https://bad.example.com")
	rev, err = testutil.NewUnixClient(sock, msg)
	if err != nil {
		t.Fatal(err)
	}
	res = UnmarshalResponse(rev)
	if res.OK() || res.Reason != "audience_mismatch" {
		t.Error("Expect", "audience_mismatch", "got", res.Reason)
	}
}

func TestServeTLS(t *testing.T) {
	dir := testutil.CreateTLSCertForTest(t)
	sb := newTestServerBase(t)
	tcp, hostport := testutil.TCPAddress(t)
	addr := &ServerAddress{
		Address:     tcp,
		TLSCertPath: path.Join(dir, "server.pem"),
		TLSKeyPath:  path.Join(dir, "server.key"),
	}
	if err := sb.ListenAndHandle(addr, echoHandler); err != nil {
		t.Fatal(err)
	}

	msg, _ := MarshalRequest("bundle", "https://example.com")
	rev, err := testutil.NewTCPClient(hostport, msg)
	if err != nil {
		t.Fatal(err)
	}
	if res := UnmarshalResponse(rev); !res.OK() {
		t.Error("Expect", StatusOkay, "got", res.Status)
	}
}

func TestServeMalformedRequest(t *testing.T) {
	sb := newTestServerBase(t)
	unix, sock := testutil.UnixAddress(t)
	called := false
	handler := func(req *Request) *Response {
		called = true
		return echoHandler(req)
	}
	if err := sb.ListenAndHandle(&ServerAddress{Address: unix}, handler); err != nil {
		t.Fatal(err)
	}

	for _, msg := range []string{
		`{"assertion":`,
		`{"audience":"https://example.com"}`,
		`{"assertion":"bundle"}`,
	} {
		rev, err := testutil.NewUnixClient(sock, []byte(msg))
		if err != nil {
			t.Fatal(err)
		}
		res := UnmarshalResponse(rev)
		if res.Status != StatusFailure || res.Reason != "malformed" {
			t.Error(msg, "Expect", "malformed", "got", res)
		}
	}
	if called {
		t.Error("Expect the handler not to be called for malformed requests")
	}
}

func TestReloadAndShutdown(t *testing.T) {
	sb := newTestServerBase(t)
	reloaded := false
	sb.Reload(func() { reloaded = true })
	if !reloaded {
		t.Error("Expect reload function to run")
	}

	done := make(chan struct{})
	sb.RunInBackground(func() {
		sb.HotReload(func() {})
		close(done)
	})
	if err := sb.Shutdown(); err != nil {
		t.Fatal(err)
	}
	<-done
	select {
	case <-sb.Stopped():
	default:
		t.Error("Expect the stop channel to be closed")
	}
	// a second shutdown is harmless
	if err := sb.Shutdown(); err != nil {
		t.Fatal(err)
	}
}
