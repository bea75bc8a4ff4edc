package protocol

import (
	"strings"
	"testing"
)

func TestValidEmail(t *testing.T) {
	for _, email := range []string{"a@b.com", "first.last@example.co.uk"} {
		if !ValidEmail(email) {
			t.Error("Expect", email, "to be valid")
		}
	}
	long := strings.Repeat("a", 250) + "@b.com"
	for _, email := range []string{"", "bademail", "a@", "@b.com", long} {
		if ValidEmail(email) {
			t.Error("Expect", email, "to be invalid")
		}
	}
}
