package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const refreshTokenBytes = 64

// NewRefreshToken returns a random refresh token and the hash to store.
// The plain token is shown to the client once and never persisted.
func NewRefreshToken() (plain, hash string, err error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("auth: generating refresh token: %w", err)
	}
	plain = hex.EncodeToString(buf)
	return plain, HashRefreshToken(plain), nil
}

// HashRefreshToken is the lookup key of a refresh token.
func HashRefreshToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// RefreshTokenMatches compares in constant time.
func RefreshTokenMatches(plain, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashRefreshToken(plain)), []byte(hash)) == 1
}
