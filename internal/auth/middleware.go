package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tobimarks/tobimarks-api/internal/response"
)

// Principal is the authenticated caller. Handlers read it once and pass
// it to services as a plain argument.
type Principal struct {
	UserID string
	Email  string
}

// AccessTokenValidator is satisfied by *TokenService.
type AccessTokenValidator interface {
	Validate(token string) (*Claims, error)
}

type contextKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFromContext returns the caller stored by RequireAuth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok && p.UserID != ""
}

// RequireAuth rejects requests without a valid bearer access token:
//
//	no Authorization header          -> 401 ACCESS_HEADER_MISSING
//	not "Bearer <token>", or empty   -> 401 ACCESS_TOKEN_MISSING
//	bad signature, expired, ...      -> 401 ACCESS_TOKEN_INVALID
func RequireAuth(tokens AccessTokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				response.Error(w, errAccessHeaderMissing, logger)
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				response.Error(w, errAccessTokenMissing, logger)
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				logger.Debug("rejected access token", slog.String("error", err.Error()))
				response.Error(w, errAccessTokenInvalid, logger)
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{UserID: claims.UserID, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
