package protocol

import (
	"github.com/go-playground/validator/v10"
)

// maxEmailLength is the RFC 5321 path limit.
const maxEmailLength = 254

var validate = validator.New()

// ValidEmail reports whether email is a syntactically valid address.
// The empty string is not valid.
func ValidEmail(email string) bool {
	if len(email) > maxEmailLength {
		return false
	}
	return validate.Var(email, "required,email") == nil
}
