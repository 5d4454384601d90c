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

var _ repository.WebsiteRepository = (*WebsiteRepo)(nil)

type WebsiteRepo struct {
	q querier
}

// FindByDomain returns the website for domain, or nil.
func (r *WebsiteRepo) FindByDomain(ctx context.Context, domain string) (*model.Website, error) {
	var w model.Website
	err := r.q.queryRow(ctx,
		`SELECT id, domain, name, favicon_url, bookmark_count, created_at, updated_at
		 FROM websites WHERE domain = ?`,
		domain,
	).Scan(
		&w.ID,
		&w.Domain,
		&w.Name,
		&w.FaviconURL,
		&w.BookmarkCount,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting website %s: %w", domain, err)
	}
	return &w, nil
}

// Create inserts a website. Domains are unique; a duplicate fails with
// repository.ErrUniqueViolation.
func (r *WebsiteRepo) Create(ctx context.Context, website *model.Website) error {
	now := time.Now().UTC()
	website.ID = xid.New().String()
	website.CreatedAt = now
	website.UpdatedAt = now

	_, err := r.q.exec(ctx,
		`INSERT INTO websites (id, domain, name, favicon_url, bookmark_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		website.ID,
		website.Domain,
		website.Name,
		website.FaviconURL,
		website.BookmarkCount,
		website.CreatedAt,
		website.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting website %s: %w", website.Domain, mapError(err))
	}
	return nil
}

func (r *WebsiteRepo) IncrementBookmarkCount(ctx context.Context, id string) error {
	res, err := r.q.exec(ctx,
		`UPDATE websites SET bookmark_count = bookmark_count + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing bookmark count for website %s: %w", id, err)
	}
	return requireAffected(res, "website", id)
}

// requireAffected returns repository.ErrNotFound when res touched no rows.
func requireAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("sqlite: %s %s: %w", resource, id, repository.ErrNotFound)
	}
	return nil
}
