// Defines the messages exchanged between a relying site and the
// verifier, and the functions to encode/decode them.
// Currently this module supports JSON marshal/unmarshal only.

package application

import (
	"encoding/json"

	"github.com/rodneysullivan/browserid/protocol"
	"github.com/rodneysullivan/browserid/protocol/assertion"
)

// Response statuses.
const (
	StatusOkay    = "okay"
	StatusFailure = "failure"
)

// A Request asks the verifier whether Assertion, an encoded bundle,
// proves an email address to the site at Audience.
type Request struct {
	Assertion string `json:"assertion"`
	Audience  string `json:"audience"`
}

// A Response is the verifier's answer. Reason is set on failure;
// the other fields are set on success.
type Response struct {
	Status   string             `json:"status"`
	Reason   string             `json:"reason,omitempty"`
	Email    string             `json:"email,omitempty"`
	Audience string             `json:"audience,omitempty"`
	Expires  protocol.Timestamp `json:"expires,omitempty"`
	Issuer   string             `json:"issuer,omitempty"`
}

// NewSuccessResponse builds an okay Response describing res.
func NewSuccessResponse(res *assertion.Result) *Response {
	return &Response{
		Status:   StatusOkay,
		Email:    res.Email,
		Audience: res.Audience,
		Expires:  res.ExpiresAt,
		Issuer:   res.Issuer,
	}
}

// NewErrorResponse builds a failure Response carrying the reason key
// of err.
func NewErrorResponse(err error) *Response {
	return &Response{
		Status: StatusFailure,
		Reason: protocol.ReasonOf(err),
	}
}

// OK reports whether the verification succeeded.
func (res *Response) OK() bool {
	return res.Status == StatusOkay
}

// MarshalRequest returns a JSON encoding of the relying site's request.
func MarshalRequest(bundle, audience string) ([]byte, error) {
	return json.Marshal(&Request{
		Assertion: bundle,
		Audience:  audience,
	})
}

// UnmarshalRequest parses a JSON-encoded request msg.
// A message that does not decode, or lacks the assertion or the
// audience, yields protocol.ErrMalformed.
func UnmarshalRequest(msg []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return nil, protocol.ErrMalformed
	}
	if req.Assertion == "" || req.Audience == "" {
		return nil, protocol.ErrMalformed
	}
	return &req, nil
}

// MarshalResponse returns a JSON encoding of the server's response.
func MarshalResponse(response *Response) ([]byte, error) {
	return json.Marshal(response)
}

// UnmarshalResponse decodes the given message into a Response.
// A message that does not decode, or whose status is unknown, yields a
// failure Response with the malformed reason.
func UnmarshalResponse(msg []byte) *Response {
	var res Response
	if err := json.Unmarshal(msg, &res); err != nil {
		return NewErrorResponse(protocol.ErrMalformed)
	}
	if res.Status != StatusOkay && res.Status != StatusFailure {
		return NewErrorResponse(protocol.ErrMalformed)
	}
	return &res
}
