package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tobimarks/tobimarks-api/internal/model"
	"github.com/tobimarks/tobimarks-api/internal/repository"
)

var _ repository.RefreshTokenRepository = (*RefreshTokenRepo)(nil)

type RefreshTokenRepo struct {
	q querier
}

func (r *RefreshTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now().UTC()
	token.ExpiresAt = token.ExpiresAt.UTC()

	_, err := r.q.exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.RevokedAt,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting refresh token: %w", mapError(err))
	}
	return nil
}

// FindByHash returns the token record with the given hash, revoked or not,
// or nil.
func (r *RefreshTokenRepo) FindByHash(ctx context.Context, hash string) (*model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.q.queryRow(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		 FROM refresh_tokens WHERE token_hash = ?`,
		hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.RevokedAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting refresh token: %w", err)
	}
	return &t, nil
}

// Revoke marks one token as used. Revoking twice keeps the first
// timestamp.
func (r *RefreshTokenRepo) Revoke(ctx context.Context, id string, at time.Time) error {
	res, err := r.q.exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`,
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: revoking refresh token %s: %w", id, err)
	}
	return requireAffected(res, "refresh token", id)
}

func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID string, at time.Time) error {
	_, err := r.q.exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		at.UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: revoking refresh tokens of user %s: %w", userID, err)
	}
	return nil
}
