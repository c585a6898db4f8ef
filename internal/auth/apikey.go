package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// GenerateAPIKeySecret returns a fresh cryptographically-random secret. It
// is returned to the caller exactly once; only its hash is persisted.
func GenerateAPIKeySecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashAPIKeySecret hashes a plaintext API key secret for storage.
func HashAPIKeySecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.RawStdEncoding.EncodeToString(sum[:])
}

// SecretMatchesHash compares a presented secret against a stored hash in
// constant time.
func SecretMatchesHash(secret, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashAPIKeySecret(secret)), []byte(hash)) == 1
}
