package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/tobimarks/tobimarks-api/internal/apperror"
	"github.com/tobimarks/tobimarks-api/internal/auth"
	"github.com/tobimarks/tobimarks-api/internal/response"
	"github.com/tobimarks/tobimarks-api/internal/service"
	"github.com/tobimarks/tobimarks-api/internal/validation"
)

const stateCookie = "oauth_state"

// AuthService is satisfied by *service.AuthService.
type AuthService interface {
	AuthenticateWithGoogle(ctx context.Context, idToken string) (*service.TokenPair, error)
	AuthenticateWithCode(ctx context.Context, code string) (*service.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutEverywhere(ctx context.Context, p auth.Principal) error
}

// AuthURLer builds the Google consent URL. *auth.GoogleProvider satisfies it.
type AuthURLer interface {
	AuthURL(state string) string
}

// AuthHandler serves sign-in, token refresh and logout.
//
//   - POST /auth/google          mobile and SPA clients send a Google ID token
//   - GET  /auth/google/login    browser redirect to Google
//   - GET  /auth/google/callback browser returns here with a code
//   - POST /auth/refresh         rotate the refresh token
//   - POST /auth/logout          revoke one refresh token
//   - POST /auth/logout-all      revoke every refresh token of the caller
type AuthHandler struct {
	auth   AuthService
	google AuthURLer // nil when the browser flow is not configured
	decoder
}

func NewAuthHandler(svc AuthService, google AuthURLer, v *validation.Validator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, google: google, decoder: decoder{validator: v, logger: logger}}
}

type googleRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (h *AuthHandler) HandleGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleRequest
	if !h.bind(w, r, &req) {
		return
	}
	pair, err := h.auth.AuthenticateWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		response.Error(w, err, h.logger)
		return
	}
	response.Success(w, pair, response.Body{Message: "Authenticated successfully"}, h.logger)
}

// HandleGoogleLogin stores a random state in a short-lived cookie and
// redirects to Google. The callback only accepts the same state back.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback checks the state, then exchanges the code and
// returns the same token pair envelope as HandleGoogle.
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || query.Get("state") != cookie.Value {
		h.logger.Warn("oauth callback: state mismatch")
		response.Error(w, apperror.New(apperror.ErrValidation, auth.CodeOAuthStateInvalid, "OAuth state is invalid"), h.logger)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if denied := query.Get("error"); denied != "" {
		h.logger.Info("oauth callback: sign-in denied", slog.String("error", denied))
		response.Error(w, apperror.Unauthorized(auth.CodeOAuthCodeInvalid, "Google sign-in was not completed"), h.logger)
		return
	}

	code := query.Get("code")
	if code == "" {
		response.Error(w, apperror.ValidationFailed("code", "Authorization code is missing"), h.logger)
		return
	}

	pair, err := h.auth.AuthenticateWithCode(r.Context(), code)
	if err != nil {
		response.Error(w, err, h.logger)
		return
	}
	response.Success(w, pair, response.Body{Message: "Authenticated successfully"}, h.logger)
}

func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.bind(w, r, &req) {
		return
	}
	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		response.Error(w, err, h.logger)
		return
	}
	response.Success(w, pair, response.Body{}, h.logger)
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.bind(w, r, &req) {
		return
	}
	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		response.Error(w, err, h.logger)
		return
	}
	response.Success(w, nil, response.Body{Message: "Logged out successfully"}, h.logger)
}

func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.LogoutEverywhere(r.Context(), principal(r)); err != nil {
		response.Error(w, err, h.logger)
		return
	}
	response.Success(w, nil, response.Body{Message: "Logged out of all sessions"}, h.logger)
}
