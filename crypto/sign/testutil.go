package sign

import "bytes"

// NewStaticTestKey returns a deterministic private key for _tests_.
// The seed is padded or truncated to 32 bytes.
func NewStaticTestKey(seed string) PrivateKey {
	b := make([]byte, 32)
	copy(b, seed)
	sk, err := GenerateKey(bytes.NewReader(b))
	if err != nil {
		panic(err)
	}
	return sk
}
