package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefreshToken(t *testing.T) {
	plain, hash, err := NewRefreshToken()
	require.NoError(t, err)

	assert.Len(t, plain, 128, "64 bytes hex-encoded")
	assert.Len(t, hash, 64, "sha-256 hex-encoded")
	assert.NotEqual(t, plain, hash)
	assert.Equal(t, HashRefreshToken(plain), hash)
	assert.True(t, RefreshTokenMatches(plain, hash))
	assert.False(t, RefreshTokenMatches(plain+"x", hash))
}

func TestNewRefreshToken_Unique(t *testing.T) {
	seen := map[string]bool{}
	for range 50 {
		plain, _, err := NewRefreshToken()
		require.NoError(t, err)
		require.False(t, seen[plain], "duplicate refresh token")
		seen[plain] = true
	}
}

func TestHashRefreshToken_Deterministic(t *testing.T) {
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		HashRefreshToken("hello"))
}
