// Package testutil provides TLS material, listener addresses and raw
// clients for testing servers built on application.ServerBase.
package testutil

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"os"
	"path"
	"testing"
	"time"
)

// MaxResponseSize bounds the responses read by the test clients.
const MaxResponseSize = 8192

// CreateTLSCert writes a self-signed certificate for 127.0.0.1 to
// dir/server.pem and its private key to dir/server.key.
func CreateTLSCert(dir string) error {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return err
	}

	notBefore := time.Now()
	notAfter := notBefore.Add(1 * time.Hour)

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return err
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"BrowserID Test"},
			CommonName:   "localhost",
		},
		NotBefore: notBefore,
		NotAfter:  notAfter,

		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return err
	}
	certBuf := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes})
	if err := os.WriteFile(path.Join(dir, "server.pem"), certBuf, 0644); err != nil {
		return err
	}

	b, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return err
	}
	keyBuf := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: b})
	return os.WriteFile(path.Join(dir, "server.key"), keyBuf, 0600)
}

// CreateTLSCertForTest creates a TLS certificate in a temporary
// directory removed when the test ends, and returns the directory.
func CreateTLSCertForTest(t *testing.T) string {
	dir := t.TempDir()
	if err := CreateTLSCert(dir); err != nil {
		t.Fatal(err)
	}
	return dir
}

// TCPAddress returns a tcp:// address on a port that was free when
// the function was called, and the host:port part of it.
func TCPAddress(t *testing.T) (string, string) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	hostport := ln.Addr().String()
	ln.Close()
	return "tcp://" + hostport, hostport
}

// UnixAddress returns a unix:// address for a socket in a fresh
// directory, and the socket path. The directory is short enough for
// the socket path length limit.
func UnixAddress(t *testing.T) (string, string) {
	dir, err := os.MkdirTemp("", "bid")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	sock := path.Join(dir, "verifier.sock")
	return "unix://" + sock, sock
}

// NewTCPClient sends msg over TLS to hostport, half-closes the
// connection and returns the response.
func NewTCPClient(hostport string, msg []byte) ([]byte, error) {
	conf := &tls.Config{InsecureSkipVerify: true}

	conn, err := tls.Dial("tcp", hostport, conf)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write(msg); err != nil {
		return nil, err
	}
	if err := conn.CloseWrite(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, conn, MaxResponseSize); err != nil && err != io.EOF {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewUnixClient sends msg to the socket at sock, half-closes the
// connection and returns the response.
func NewUnixClient(sock string, msg []byte) ([]byte, error) {
	scheme := "unix"
	unixaddr := &net.UnixAddr{Name: sock, Net: scheme}

	conn, err := net.DialUnix(scheme, nil, unixaddr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write(msg); err != nil {
		return nil, err
	}
	conn.CloseWrite()

	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, conn, MaxResponseSize); err != nil && err != io.EOF {
		return nil, err
	}
	return buf.Bytes(), nil
}
