// Package passcode hashes and verifies the optional human-chosen passcode
// on a share packet. The plaintext is never persisted; each packet gets its
// own random salt so identical passcodes produce unrelated digests.
package passcode

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize  = 16
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4
)

// Hash derives a digest from the trimmed plaintext using argon2id with a
// fresh random salt. The result is "hex(salt)$hex(key)".
func Hash(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := derive(plaintext, salt)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(key), nil
}

// Verify reports whether plaintext matches the digest. The key comparison
// is constant-time. A malformed digest never verifies.
func Verify(plaintext, digest string) bool {
	saltHex, keyHex, ok := strings.Cut(digest, "$")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) != saltSize {
		return false
	}
	want, err := hex.DecodeString(keyHex)
	if err != nil || len(want) != keySize {
		return false
	}
	got := derive(plaintext, salt)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func derive(plaintext string, salt []byte) []byte {
	trimmed := strings.TrimSpace(plaintext)
	return argon2.IDKey([]byte(trimmed), salt, argonTime, argonMem, argonPar, keySize)
}
