// Package auth issues and checks the credentials of the API.
//
// Clients sign in with a Google ID token (or the browser auth-code flow,
// which yields one). The server then hands out its own pair of tokens:
//
//   - an access token, a short-lived HS256 JWT sent as
//     "Authorization: Bearer <token>" on every request
//   - a refresh token, an opaque random string exchanged for a new pair
//     when the access token expires
//
// Only the SHA-256 hash of a refresh token is stored.
//
// SIGN-IN FLOW:
//  1. The client obtains a Google ID token (Google Sign-In on mobile, or the
//     /auth/google/login redirect in a browser).
//  2. IDTokenVerifier checks it against Google's published keys and this
//     app's client ID, and reads the subject, email and name.
//  3. The service finds or creates the user keyed by the Google subject and
//     issues an access token plus a refresh token.
//  4. RequireAuth validates the access token on every protected request and
//     puts a Principal in the request context.
//
// WHY TWO TOKENS?
// Access tokens are checked with the secret alone, without a database
// lookup, so they cannot be revoked early. Keeping them short-lived bounds
// that window. Refresh tokens live for weeks but are stored server side, so
// logout and "log out everywhere" can revoke them immediately.
//
// JWT STRUCTURE:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:    {"alg":"HS256","typ":"JWT"}
//	- Payload:   {"sub":"<user id>","email":"...","iss":"tobimarks","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "tobimarks"

// DefaultAccessTokenDuration is used when NewTokenService gets a zero
// duration.
const DefaultAccessTokenDuration = 15 * time.Minute

// ErrTokenExpired is returned by Validate for a well-formed token past its
// expiry.
var ErrTokenExpired = errors.New("auth: token expired")

// Claims is what an access token proves about its bearer.
type Claims struct {
	UserID string
	Email  string
}

// TokenService signs and verifies access tokens with one HMAC secret.
type TokenService struct {
	secret   []byte
	duration time.Duration
}

// NewTokenService rejects secrets shorter than 16 characters.
func NewTokenService(secret string, duration time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if duration <= 0 {
		duration = DefaultAccessTokenDuration
	}
	return &TokenService{secret: []byte(secret), duration: duration}, nil
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Generate signs an access token valid for the configured duration.
func (s *TokenService) Generate(userID, email string) (string, error) {
	return s.GenerateWithDuration(userID, email, s.duration)
}

// GenerateWithDuration signs an access token valid for d. A negative d
// produces an already expired token.
func (s *TokenService) GenerateWithDuration(userID, email string, d time.Duration) (string, error) {
	now := time.Now()

	c := accessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, algorithm, issuer and expiry, and returns the
// claims of a valid token.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&accessClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}

	return &Claims{UserID: c.Subject, Email: c.Email}, nil
}
