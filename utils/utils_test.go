package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePath(t *testing.T) {
	if p := ResolvePath("key.pem", "/etc/browserid/config.toml"); p != "/etc/browserid/key.pem" {
		t.Error("Expect /etc/browserid/key.pem got", p)
	}
	if p := ResolvePath("/var/key.pem", "/etc/browserid/config.toml"); p != "/var/key.pem" {
		t.Error("Expect /var/key.pem got", p)
	}
}

func TestWriteFileRefusesOverwrite(t *testing.T) {
	name := filepath.Join(t.TempDir(), "file")
	if err := WriteFile(name, []byte("first"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(name, []byte("second"), 0600); err == nil {
		t.Error("Expect an error when the file exists")
	}
	buf, err := os.ReadFile(name)
	if err != nil || string(buf) != "first" {
		t.Error("Expect first got", string(buf), err)
	}
}
