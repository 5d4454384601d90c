// Package repository declares the persistence interfaces the service layer
// depends on. Implementations live in subpackages (see repository/sqlite).
//
// Find* methods return (nil, nil) when no row matches; callers decide
// whether absence is an error in their domain. Mutations of a missing row
// return ErrNotFound.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tobimarks/tobimarks-api/internal/model"
)

// ErrNotFound is returned by mutations that matched no row.
var ErrNotFound = errors.New("record not found")

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

type WebsiteRepository interface {
	FindByDomain(ctx context.Context, domain string) (*model.Website, error)
	Create(ctx context.Context, website *model.Website) error
	IncrementBookmarkCount(ctx context.Context, id string) error
}

type BookmarkRepository interface {
	Create(ctx context.Context, bookmark *model.Bookmark) error
	FindByID(ctx context.Context, id string) (*model.Bookmark, error)
	// ListByUser returns one page of the user's live bookmarks, newest
	// first, and the total count across all pages.
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]model.BookmarkListItem, int, error)
	ExistsByIDAndUserID(ctx context.Context, id, userID string) (bool, error)
	SoftDelete(ctx context.Context, id string) error
	UpdateFavoriteStatus(ctx context.Context, id string, isFavorite bool) error
	UpdateTitle(ctx context.Context, id, title string) error
	// ReplaceTags deletes every association of the bookmark and inserts
	// tagIDs in their place.
	ReplaceTags(ctx context.Context, bookmarkID string, tagIDs []string) error
}

type TagRepository interface {
	ListByUser(ctx context.Context, userID string) ([]model.Tag, error)
	// FindByID loads one tag including its embedding.
	FindByID(ctx context.Context, id string) (*model.Tag, error)
	Create(ctx context.Context, tag *model.Tag) error
	Update(ctx context.Context, tag *model.Tag) error
	Delete(ctx context.Context, id string) error
	ExistsByIDAndUserID(ctx context.Context, id, userID string) (bool, error)
	// CountOwned returns how many of ids are tags owned by userID.
	CountOwned(ctx context.Context, userID string, ids []string) (int, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByHash(ctx context.Context, hash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) error
}

// Repositories groups every repository bound to one connection, either the
// shared pool or a single transaction.
type Repositories interface {
	Users() UserRepository
	Websites() WebsiteRepository
	Bookmarks() BookmarkRepository
	Tags() TagRepository
	RefreshTokens() RefreshTokenRepository
}
