package ratelimit

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/tobimarks/tobimarks-api/internal/apperror"
	"github.com/tobimarks/tobimarks-api/internal/auth"
	"github.com/tobimarks/tobimarks-api/internal/response"
)

// Middleware answers 429 RATE_LIMITED once a caller runs out of tokens.
// Authenticated callers are keyed by user id, anonymous ones by client IP.
func Middleware(krl *KeyedRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !krl.Allow(key) {
				logger.Info("rate limit exceeded", slog.String("key", key), slog.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "1")
				response.Error(w, apperror.RateLimited("Too many requests, please slow down"), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		return "user:" + p.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
