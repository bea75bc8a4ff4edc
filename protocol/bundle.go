package protocol

// A Bundle is the artifact handed to a relying site: a certificate chain
// whose first certificate is signed by a trust root or identity provider
// and whose every later certificate is signed by the previous subject
// key, followed by an assertion signed by the last subject key.
type Bundle struct {
	Certificates []*Certificate
	Assertion    *Assertion
}

// Subject returns the terminal certificate of the chain, or nil.
func (b *Bundle) Subject() *Certificate {
	if len(b.Certificates) == 0 {
		return nil
	}
	return b.Certificates[len(b.Certificates)-1]
}
