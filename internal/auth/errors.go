package auth

import "github.com/tobimarks/tobimarks-api/internal/apperror"

// Error codes raised while authenticating.
const (
	CodeAccessHeaderMissing         = "ACCESS_HEADER_MISSING"
	CodeAccessTokenMissing          = "ACCESS_TOKEN_MISSING"
	CodeAccessTokenInvalid          = "ACCESS_TOKEN_INVALID"
	CodeGoogleIDTokenInvalid        = "GOOGLE_ID_TOKEN_INVALID"
	CodeGoogleEmailMissing          = "GOOGLE_EMAIL_MISSING"
	CodeGoogleNameMissing           = "GOOGLE_NAME_MISSING"
	CodeInvalidGoogleTokenSignature = "INVALID_GOOGLE_TOKEN_SIGNATURE"
	CodeRefreshTokenInvalid         = "REFRESH_TOKEN_INVALID"
	CodeOAuthStateInvalid           = "OAUTH_STATE_INVALID"
	CodeOAuthCodeInvalid            = "OAUTH_CODE_INVALID"
)

var (
	errAccessHeaderMissing = apperror.Unauthorized(CodeAccessHeaderMissing, "Authentication header is missing")
	errAccessTokenMissing  = apperror.Unauthorized(CodeAccessTokenMissing, "Access token is missing")
	errAccessTokenInvalid  = apperror.Unauthorized(CodeAccessTokenInvalid, "Access token is invalid")
)

// ErrRefreshTokenInvalid covers unknown, revoked and expired refresh
// tokens alike.
func ErrRefreshTokenInvalid() *apperror.AppError {
	return apperror.Unauthorized(CodeRefreshTokenInvalid, "Refresh token is invalid")
}
