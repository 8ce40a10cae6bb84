// Package crypto provides password digests and random material.
//
// The password digest is an opaque one-way function from the rest of the
// system's point of view: callers store and compare hex strings and never
// inspect them.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const SaltLength = 16

// GenerateSalt returns a fresh random per-user salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("crypto: generate salt: %w", err)
	}
	return salt, nil
}

// HashPassword digests a password with Argon2id and the given salt,
// returning a hex string suitable for storage.
func HashPassword(password string, salt []byte) string {
	sum := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(sum)
}

// VerifyPassword recomputes the digest and compares in constant time.
func VerifyPassword(password string, salt []byte, hash string) bool {
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(hash)) == 1
}

// RandomBytes returns n bytes from the OS entropy source.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("crypto: random bytes: %w", err)
	}
	return b, nil
}
