package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/tobimarks/tobimarks-api/internal/model"
	"github.com/tobimarks/tobimarks-api/internal/repository"
)

// compile-time check that *UserRepo implements repository.UserRepository
var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	q querier
}

const userColumns = `id, google_id, email, display_name, avatar_url, is_active, last_login_at, created_at, updated_at`

func scanUser(r row) (*model.User, error) {
	var u model.User
	err := r.Scan(
		&u.ID,
		&u.GoogleID,
		&u.Email,
		&u.DisplayName,
		&u.AvatarURL,
		&u.IsActive,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID returns the user with the given internal ID, or nil.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.q.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// FindByGoogleID returns the user linked to a Google subject, or nil.
func (r *UserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	u, err := scanUser(r.q.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = ?`, googleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by google id: %w", err)
	}
	return u, nil
}

// Create inserts a new user, filling in ID and timestamps.
// A second user with the same google_id fails with
// repository.ErrUniqueViolation.
func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.IsActive = true
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.q.exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.GoogleID,
		user.Email,
		user.DisplayName,
		user.AvatarURL,
		user.IsActive,
		user.LastLoginAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user: %w", mapError(err))
	}
	return nil
}

// TouchLogin records a successful sign-in.
func (r *UserRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	at = at.UTC()
	_, err := r.q.exec(ctx,
		`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		at, at, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching login for user %s: %w", id, err)
	}
	return nil
}
