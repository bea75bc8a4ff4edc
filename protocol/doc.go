/*
Package protocol is a library for building compatible BrowserID user agents,
identity providers and verifiers.

protocol implements the data model of the email verification protocol:
certificates that bind an email address to a public key, short-lived
assertions that bind a relying site (the audience) to that key, and the
bundle that carries both to the relying site. Sub-packages implement the
certificate chain validation (chain), assertion generation and
verification (assertion), the verification flow state machine (flow) and
the user-side session bookkeeping (session).

Certificate

This module defines a certificate, a statement signed by an identity
provider binding a public key to an email principal for a time window.

Assertion

This module defines an assertion, a claim signed with the key of a
certified identity, scoped to exactly one audience and expiring shortly
after it was created.

Codec

This module encodes and decodes the compact signed-token format used for
both certificates and assertions, and the bundle format joining a
certificate chain and an assertion.

Error

This module defines the constants representing the types of errors that
the validation and flow components return. Each carries a stable reason
key that presentation layers can localize.
*/
package protocol
