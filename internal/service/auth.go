package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tobimarks/tobimarks-api/internal/apperror"
	"github.com/tobimarks/tobimarks-api/internal/auth"
	"github.com/tobimarks/tobimarks-api/internal/model"
	"github.com/tobimarks/tobimarks-api/internal/repository"
)

// CodeUserInactive is returned when a disabled account tries to sign in.
const CodeUserInactive = "USER_INACTIVE"

// AccessTokenIssuer is satisfied by *auth.TokenService.
type AccessTokenIssuer interface {
	Generate(userID, email string) (string, error)
}

// CodeExchanger trades an OAuth authorization code for a Google ID token.
// *auth.GoogleProvider satisfies it.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (string, error)
}

// TokenPair is what every successful sign-in or refresh returns.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthService signs users in with Google and manages their sessions.
//
// A session is an access token (short-lived JWT, never stored) plus a
// refresh token (random, stored as a hash). Refreshing revokes the token
// that was presented and issues a new pair.
//
// DEPENDENCIES (injected via NewAuthService):
//   - store      Store                  users and refresh tokens, units of work
//   - verifier   auth.GoogleVerifier    checks Google ID tokens
//   - exchanger  CodeExchanger          browser flow only, may be nil
//   - tokens     AccessTokenIssuer      signs access tokens
//   - logger     *slog.Logger           structured logging
type AuthService struct {
	store      Store
	verifier   auth.GoogleVerifier
	exchanger  CodeExchanger // nil when the browser flow is not configured
	tokens     AccessTokenIssuer
	refreshTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

func NewAuthService(
	store Store,
	verifier auth.GoogleVerifier,
	exchanger CodeExchanger,
	tokens AccessTokenIssuer,
	refreshTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:      store,
		verifier:   verifier,
		exchanger:  exchanger,
		tokens:     tokens,
		refreshTTL: refreshTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// AuthenticateWithGoogle verifies a Google ID token and signs its owner in,
// creating the account on first use. Verification failures are returned
// unchanged from the verifier.
func (s *AuthService) AuthenticateWithGoogle(ctx context.Context, idToken string) (*TokenPair, error) {
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, identity)
}

// AuthenticateWithCode completes the browser flow: the code from the
// OAuth callback is exchanged for an ID token, which then goes through
// the same path as AuthenticateWithGoogle.
func (s *AuthService) AuthenticateWithCode(ctx context.Context, code string) (*TokenPair, error) {
	if s.exchanger == nil {
		return nil, errors.New("service/auth: browser sign-in is not configured")
	}
	idToken, err := s.exchanger.Exchange(ctx, code)
	if err != nil {
		return nil, &apperror.AppError{
			Err:     fmt.Errorf("%w: %w", apperror.ErrUnauthorized, err),
			Code:    auth.CodeOAuthCodeInvalid,
			Message: "Authorization code is invalid",
		}
	}
	return s.AuthenticateWithGoogle(ctx, idToken)
}

// signIn finds the user linked to the Google subject, or creates exactly
// one, and opens a session for them. The lookup, the insert and the new
// refresh token share one transaction.
func (s *AuthService) signIn(ctx context.Context, identity *auth.GoogleIdentity) (*TokenPair, error) {
	now := s.now()

	var (
		user    *model.User
		refresh string
		created bool
	)
	err := repository.WithinTransaction(ctx, s.store, func(r repository.Repositories) error {
		u, err := r.Users().FindByGoogleID(ctx, identity.Subject)
		if err != nil {
			return fmt.Errorf("finding user: %w", err)
		}
		if u == nil {
			u = &model.User{
				GoogleID:    identity.Subject,
				Email:       identity.Email,
				DisplayName: identity.Name,
				AvatarURL:   optional(identity.Picture),
				IsActive:    true,
			}
			if err := r.Users().Create(ctx, u); err != nil {
				return fmt.Errorf("creating user: %w", err)
			}
			created = true
		}
		if !u.IsActive {
			return apperror.Forbidden(CodeUserInactive, "User account is disabled")
		}
		if err := r.Users().TouchLogin(ctx, u.ID, now); err != nil {
			return fmt.Errorf("recording login: %w", err)
		}

		refresh, err = s.issueRefreshToken(ctx, r, u.ID, now)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, wrapUnlessApp("service/auth: signing in", err)
	}

	if created {
		s.logger.Info("user created", slog.String("userID", user.ID))
	}
	s.logger.Debug("user signed in", slog.String("userID", user.ID))

	access, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating access token for %s: %w", user.ID, err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a live refresh token for a new pair. The presented
// token is revoked whether or not it was the latest one issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, auth.ErrRefreshTokenInvalid()
	}
	now := s.now()

	var (
		user    *model.User
		refresh string
	)
	err := repository.WithinTransaction(ctx, s.store, func(r repository.Repositories) error {
		stored, err := r.RefreshTokens().FindByHash(ctx, auth.HashRefreshToken(refreshToken))
		if err != nil {
			return fmt.Errorf("finding refresh token: %w", err)
		}
		if stored == nil || !stored.Usable(now) {
			return auth.ErrRefreshTokenInvalid()
		}
		if err := r.RefreshTokens().Revoke(ctx, stored.ID, now); err != nil {
			return fmt.Errorf("revoking refresh token: %w", err)
		}

		u, err := r.Users().FindByID(ctx, stored.UserID)
		if err != nil {
			return fmt.Errorf("finding user: %w", err)
		}
		if u == nil || !u.IsActive {
			return auth.ErrRefreshTokenInvalid()
		}

		refresh, err = s.issueRefreshToken(ctx, r, u.ID, now)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, wrapUnlessApp("service/auth: refreshing session", err)
	}

	access, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating access token for %s: %w", user.ID, err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout revokes one refresh token. Unknown tokens are ignored so the call
// is safe to repeat.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	stored, err := s.store.RefreshTokens().FindByHash(ctx, auth.HashRefreshToken(refreshToken))
	if err != nil {
		return fmt.Errorf("service/auth: finding refresh token: %w", err)
	}
	if stored == nil {
		return nil
	}
	if err := s.store.RefreshTokens().Revoke(ctx, stored.ID, s.now()); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("service/auth: revoking refresh token: %w", err)
	}
	return nil
}

// LogoutEverywhere revokes every refresh token of the caller. Access
// tokens already issued stay valid until they expire.
func (s *AuthService) LogoutEverywhere(ctx context.Context, p auth.Principal) error {
	if err := s.store.RefreshTokens().RevokeAllForUser(ctx, p.UserID, s.now()); err != nil {
		return fmt.Errorf("service/auth: revoking sessions of %s: %w", p.UserID, err)
	}
	s.logger.Info("all sessions revoked", slog.String("userID", p.UserID))
	return nil
}

func (s *AuthService) issueRefreshToken(ctx context.Context, r repository.Repositories, userID string, now time.Time) (string, error) {
	plain, hash, err := auth.NewRefreshToken()
	if err != nil {
		return "", err
	}
	record := &model.RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := r.RefreshTokens().Create(ctx, record); err != nil {
		return "", fmt.Errorf("storing refresh token: %w", err)
	}
	return plain, nil
}

// wrapUnlessApp adds context to internal failures and leaves domain errors
// untouched, so handlers still see their kind and code at the top.
func wrapUnlessApp(action string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("%s: %w", action, err)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
