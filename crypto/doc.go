// Package crypto contains some cryptographic routines, to:
// - hash arbitrary data (`Digest`) using sha3 (shake128)
// - sign data and verify signatures using ed25519 (see crypto/sign).
package crypto
