// Package token generates the high-entropy access credentials embedded in
// share links.
package token

import (
	"crypto/rand"
	"encoding/hex"
)

// Bytes of randomness per token. 32 bytes = 256 bits, hex-encoded to 64
// characters, safe to place directly in a URL query parameter.
const tokenBytes = 32

// EncodedLen is the length of a generated token string.
const EncodedLen = tokenBytes * 2

// Generate returns a new crypto-random access token. A failure of the
// system entropy source is unrecoverable; Generate panics rather than ever
// degrading to a weaker generator. Uniqueness across issued packets is
// enforced by the store's unique index, not here.
func Generate() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic("token: entropy source failed: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
