// Package token generates the opaque bearer secrets backing API sessions.
// Only the digest of a secret is ever persisted; the plaintext is handed to
// the client exactly once at issue time.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const secretBytes = 32

// Generate returns a fresh random secret and its storable digest.
func Generate() (secret, digest string, err error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate token secret: %w", err)
	}

	secret = hex.EncodeToString(buf)
	return secret, Digest(secret), nil
}

// Digest maps a presented plaintext secret to the value stored in the
// access token table.
func Digest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
