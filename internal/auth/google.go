package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"

	"github.com/tobimarks/tobimarks-api/internal/apperror"
)

// GoogleIdentity is the verified profile carried by a Google ID token.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier checks a Google ID token and returns who it belongs to.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// IDTokenVerifier validates ID tokens against Google's published keys,
// requiring the audience to be this application's client ID.
type IDTokenVerifier struct {
	clientID string
	validate validateFunc
}

var _ GoogleVerifier = (*IDTokenVerifier)(nil)

func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{clientID: clientID, validate: idtoken.Validate}
}

// Verify returns 401 INVALID_GOOGLE_TOKEN_SIGNATURE for a bad signature,
// 401 GOOGLE_ID_TOKEN_INVALID for any other rejection, and 400
// GOOGLE_EMAIL_MISSING or GOOGLE_NAME_MISSING when the profile is
// incomplete.
func (v *IDTokenVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	payload, err := v.validate(ctx, idToken, v.clientID)
	if err != nil {
		if isSignatureError(err) {
			return nil, &apperror.AppError{
				Err:     fmt.Errorf("%w: %w", apperror.ErrUnauthorized, err),
				Code:    CodeInvalidGoogleTokenSignature,
				Message: "Google ID token signature is invalid",
			}
		}
		return nil, &apperror.AppError{
			Err:     fmt.Errorf("%w: %w", apperror.ErrUnauthorized, err),
			Code:    CodeGoogleIDTokenInvalid,
			Message: "Google ID token is invalid",
		}
	}
	if payload.Subject == "" {
		return nil, apperror.Unauthorized(CodeGoogleIDTokenInvalid, "Google ID token is invalid")
	}

	id := &GoogleIdentity{
		Subject: payload.Subject,
		Email:   claimString(payload.Claims, "email"),
		Name:    claimString(payload.Claims, "name"),
		Picture: claimString(payload.Claims, "picture"),
	}
	if id.Email == "" {
		return nil, apperror.New(apperror.ErrValidation, CodeGoogleEmailMissing, "Email not provided by Google")
	}
	if id.Name == "" {
		return nil, apperror.New(apperror.ErrValidation, CodeGoogleNameMissing, "Name not provided by Google")
	}
	return id, nil
}

func claimString(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return strings.TrimSpace(s)
}

func isSignatureError(err error) bool {
	return errors.Is(err, rsa.ErrVerification) || strings.Contains(strings.ToLower(err.Error()), "signature")
}
