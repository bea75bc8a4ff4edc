// Defines constants representing the types
// of errors that validation, verification and the
// verification flow may return.

package protocol

import "errors"

// An ErrorCode is a machine-readable error. Each code maps to a
// human-readable message, a stable reason key and an error class.
type ErrorCode int

// An ErrorClass groups error codes by the remediation they call for.
type ErrorClass int

const (
	// ClassValidation covers malformed or untrusted input.
	ClassValidation ErrorClass = iota
	// ClassExpired covers violated time windows; re-verifying may help.
	ClassExpired
	// ClassAudienceMismatch covers possible relying-site spoofing.
	ClassAudienceMismatch
	// ClassProtocolState covers integration defects.
	ClassProtocolState
	// ClassUserFacing covers flow errors rendered on the error screen.
	ClassUserFacing
)

const (
	// ErrMalformed indicates an undecodable certificate, assertion
	// or bundle.
	ErrMalformed ErrorCode = iota + 10
	// ErrEmptyChain indicates a bundle or chain without certificates.
	ErrEmptyChain
	// ErrChainBroken indicates a certificate whose issuer key is not the
	// previous subject key (or the trust root, for the first one).
	ErrChainBroken
	// ErrSignatureInvalid indicates a certificate with a bad signature.
	ErrSignatureInvalid
	// ErrExpiredCertificate indicates a certificate outside its window.
	ErrExpiredCertificate
	// ErrPrincipalMismatch indicates a chain certifying another email.
	ErrPrincipalMismatch
	// ErrBadSignature indicates an assertion with a bad signature.
	ErrBadSignature
	// ErrExpired indicates an expired assertion.
	ErrExpired
	// ErrAudienceMismatch indicates an assertion for another site.
	ErrAudienceMismatch
	// ErrMissingKey indicates an identity without a usable key pair
	// or certificate.
	ErrMissingKey

	// ErrNoController indicates a flow started without a controller.
	ErrNoController
	// ErrUnregisteredAction indicates the controller lacks a verb.
	ErrUnregisteredAction
	// ErrUnexpectedEvent indicates an event the current state rejects.
	ErrUnexpectedEvent
	// ErrFlowComplete indicates an event delivered after the flow
	// reached a terminal outcome.
	ErrFlowComplete
	// ErrInvalidEmail indicates an email chosen that is not known.
	ErrInvalidEmail

	// ErrInvalidRequiredEmail indicates a syntactically invalid
	// required email passed by the relying site.
	ErrInvalidRequiredEmail
	// ErrCannotVerifyRequiredPrimary indicates the IdP session cannot
	// satisfy the required email.
	ErrCannotVerifyRequiredPrimary
	// ErrRegistrationNotFound indicates the pending registration
	// is gone.
	ErrRegistrationNotFound
	// ErrNetwork indicates a failed network round trip.
	ErrNetwork
)

type errorInfo struct {
	message string
	reason  string
	class   ErrorClass
}

var errorInfos = map[ErrorCode]errorInfo{
	ErrMalformed:          {"[browserid] Malformed certificate or assertion", "malformed", ClassValidation},
	ErrEmptyChain:         {"[browserid] Empty certificate chain", "empty_chain", ClassValidation},
	ErrChainBroken:        {"[browserid] Broken certificate chain", "chain_broken", ClassValidation},
	ErrSignatureInvalid:   {"[browserid] Invalid certificate signature", "signature_invalid", ClassValidation},
	ErrExpiredCertificate: {"[browserid] Expired certificate", "expired_certificate", ClassExpired},
	ErrPrincipalMismatch:  {"[browserid] Certificate principal mismatch", "principal_mismatch", ClassValidation},
	ErrBadSignature:       {"[browserid] Invalid assertion signature", "bad_signature", ClassValidation},
	ErrExpired:            {"[browserid] Expired assertion", "expired", ClassExpired},
	ErrAudienceMismatch:   {"[browserid] Audience mismatch", "audience_mismatch", ClassAudienceMismatch},
	ErrMissingKey:         {"[browserid] Identity has no key or certificate", "missing_key", ClassValidation},

	ErrNoController:       {"[browserid] start: controller must be specified", "no_controller", ClassProtocolState},
	ErrUnregisteredAction: {"[browserid] Action not registered", "unregistered_action", ClassProtocolState},
	ErrUnexpectedEvent:    {"[browserid] Unexpected event", "unexpected_event", ClassProtocolState},
	ErrFlowComplete:       {"[browserid] Flow already complete", "flow_complete", ClassProtocolState},
	ErrInvalidEmail:       {"[browserid] invalid email", "invalid_email", ClassProtocolState},

	ErrInvalidRequiredEmail:        {"[browserid] Invalid required email", "invalid_required_email", ClassUserFacing},
	ErrCannotVerifyRequiredPrimary: {"[browserid] Cannot verify required primary email", "cannot_verify_required_primary", ClassUserFacing},
	ErrRegistrationNotFound:        {"[browserid] Registration not found", "registration_not_found", ClassUserFacing},
	ErrNetwork:                     {"[browserid] Network request failed", "network_error", ClassUserFacing},
}

// Error returns the human-readable message of e.
func (e ErrorCode) Error() string {
	if info, ok := errorInfos[e]; ok {
		return info.message
	}
	return "[browserid] Unknown error"
}

// Reason returns the stable machine-readable key of e.
func (e ErrorCode) Reason() string {
	if info, ok := errorInfos[e]; ok {
		return info.reason
	}
	return "unknown"
}

// Class returns the error class of e.
func (e ErrorCode) Class() ErrorClass {
	if info, ok := errorInfos[e]; ok {
		return info.class
	}
	return ClassProtocolState
}

// ReasonOf returns the reason key of the first ErrorCode in err's chain,
// or "unknown".
func ReasonOf(err error) string {
	var code ErrorCode
	if errors.As(err, &code) {
		return code.Reason()
	}
	return "unknown"
}

// Retryable reports whether re-verifying is an appropriate remediation
// for err. Only time window violations qualify; forgeries, audience
// mismatches and malformed input never do.
func Retryable(err error) bool {
	var code ErrorCode
	if errors.As(err, &code) {
		return code.Class() == ClassExpired
	}
	return false
}
