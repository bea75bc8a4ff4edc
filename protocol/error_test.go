package protocol

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorReasons(t *testing.T) {
	seen := make(map[string]ErrorCode)
	for code, info := range errorInfos {
		if !strings.HasPrefix(code.Error(), "[browserid] ") {
			t.Error("Missing prefix in", code.Error())
		}
		if other, ok := seen[info.reason]; ok {
			t.Error("Reason", info.reason, "used by", code, "and", other)
		}
		seen[info.reason] = code
	}
	if ErrInvalidRequiredEmail.Reason() != "invalid_required_email" {
		t.Error("Unexpected reason", ErrInvalidRequiredEmail.Reason())
	}
	if ErrorCode(0).Reason() != "unknown" {
		t.Error("Expect unknown reason for an unknown code")
	}
}

func TestReasonOfWrappedError(t *testing.T) {
	err := fmt.Errorf("certificate 2: %w", ErrChainBroken)
	if r := ReasonOf(err); r != "chain_broken" {
		t.Error("Expect chain_broken got", r)
	}
	if r := ReasonOf(errors.New("boom")); r != "unknown" {
		t.Error("Expect unknown got", r)
	}
}

func TestRetryable(t *testing.T) {
	for _, err := range []error{ErrExpired, ErrExpiredCertificate,
		fmt.Errorf("%w", ErrExpired)} {
		if !Retryable(err) {
			t.Error("Expect", err, "to be retryable")
		}
	}
	for _, err := range []error{ErrBadSignature, ErrSignatureInvalid,
		ErrAudienceMismatch, ErrMalformed, ErrChainBroken, nil} {
		if Retryable(err) {
			t.Error("Expect", err, "not to be retryable")
		}
	}
}
