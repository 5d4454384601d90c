package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/tobimarks/tobimarks-api/internal/model"
	"github.com/tobimarks/tobimarks-api/internal/repository"
)

var _ repository.BookmarkRepository = (*BookmarkRepo)(nil)

// BookmarkRepo stores bookmarks and their tag associations. Soft-deleted
// bookmarks are invisible to every read.
type BookmarkRepo struct {
	q querier
}

const bookmarkColumns = `id, user_id, website_id, category_id, url, title, description,
	og_title, og_description, og_image_url, is_favorite, is_archived,
	access_count, last_accessed_at, created_at, updated_at, deleted_at`

// Create inserts a bookmark. A live bookmark with the same (user, url)
// fails with repository.ErrUniqueViolation.
func (r *BookmarkRepo) Create(ctx context.Context, b *model.Bookmark) error {
	now := time.Now().UTC()
	b.ID = xid.New().String()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := r.q.exec(ctx,
		`INSERT INTO bookmarks (`+bookmarkColumns+`, search_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.UserID,
		b.WebsiteID,
		b.CategoryID,
		b.URL,
		b.Title,
		b.Description,
		b.OGTitle,
		b.OGDescription,
		b.OGImageURL,
		b.IsFavorite,
		b.IsArchived,
		b.AccessCount,
		b.LastAccessedAt,
		b.CreatedAt,
		b.UpdatedAt,
		b.DeletedAt,
		searchText(b),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting bookmark: %w", mapError(err))
	}
	return nil
}

// searchText is the plain text a future search index would match on:
// the best available title followed by the description.
func searchText(b *model.Bookmark) string {
	var parts []string
	switch {
	case b.Title != nil && *b.Title != "":
		parts = append(parts, *b.Title)
	case b.OGTitle != nil && *b.OGTitle != "":
		parts = append(parts, *b.OGTitle)
	}
	if b.Description != nil && *b.Description != "" {
		parts = append(parts, *b.Description)
	} else if b.OGDescription != nil && *b.OGDescription != "" {
		parts = append(parts, *b.OGDescription)
	}
	return strings.Join(parts, " ")
}

// FindByID returns a live bookmark, or nil.
func (r *BookmarkRepo) FindByID(ctx context.Context, id string) (*model.Bookmark, error) {
	var b model.Bookmark
	err := r.q.queryRow(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = ? AND deleted_at IS NULL`,
		id,
	).Scan(
		&b.ID,
		&b.UserID,
		&b.WebsiteID,
		&b.CategoryID,
		&b.URL,
		&b.Title,
		&b.Description,
		&b.OGTitle,
		&b.OGDescription,
		&b.OGImageURL,
		&b.IsFavorite,
		&b.IsArchived,
		&b.AccessCount,
		&b.LastAccessedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting bookmark %s: %w", id, err)
	}
	return &b, nil
}

// ListByUser joins each bookmark with its website and aggregates its tags
// into a JSON array, ordered by tag name.
func (r *BookmarkRepo) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.BookmarkListItem, int, error) {
	var total int
	err := r.q.queryRow(ctx,
		`SELECT COUNT(*) FROM bookmarks WHERE user_id = ? AND deleted_at IS NULL`,
		userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting bookmarks: %w", err)
	}

	rows, err := r.q.query(ctx,
		`SELECT
			b.id,
			b.url,
			COALESCE(b.title, b.og_title),
			b.is_favorite,
			b.is_archived,
			b.access_count,
			w.domain,
			w.favicon_url,
			(
				SELECT json_group_array(json(tag))
				FROM (
					SELECT json_object('id', t.id, 'name', t.name, 'slug', t.slug, 'color', t.color) AS tag
					FROM bookmark_tags bt
					INNER JOIN tags t ON t.id = bt.tag_id
					WHERE bt.bookmark_id = b.id
					ORDER BY t.name
				)
			),
			b.created_at
		 FROM bookmarks b
		 INNER JOIN websites w ON w.id = b.website_id
		 WHERE b.user_id = ? AND b.deleted_at IS NULL
		 ORDER BY b.created_at DESC, b.id DESC
		 LIMIT ? OFFSET ?`,
		userID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing bookmarks: %w", err)
	}
	defer rows.Close()

	items := []model.BookmarkListItem{}
	for rows.Next() {
		var (
			item     model.BookmarkListItem
			tagsJSON string
		)
		if err := rows.Scan(
			&item.ID,
			&item.URL,
			&item.Title,
			&item.IsFavorite,
			&item.IsArchived,
			&item.AccessCount,
			&item.Domain,
			&item.FaviconURL,
			&tagsJSON,
			&item.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning bookmark row: %w", err)
		}

		item.Tags = []model.TagSummary{}
		if err := json.Unmarshal([]byte(tagsJSON), &item.Tags); err != nil {
			return nil, 0, fmt.Errorf("sqlite: decoding tags of bookmark %s: %w", item.ID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating bookmarks: %w", err)
	}

	return items, total, nil
}

func (r *BookmarkRepo) ExistsByIDAndUserID(ctx context.Context, id, userID string) (bool, error) {
	var one int
	err := r.q.queryRow(ctx,
		`SELECT 1 FROM bookmarks WHERE id = ? AND user_id = ? AND deleted_at IS NULL LIMIT 1`,
		id, userID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking bookmark %s: %w", id, err)
	}
	return true, nil
}

// SoftDelete stamps deleted_at. The row and its tag links stay in place
// but no longer count towards tag usage or the website's bookmark count.
func (r *BookmarkRepo) SoftDelete(ctx context.Context, id string) error {
	var websiteID string
	err := r.q.queryRow(ctx,
		`SELECT website_id FROM bookmarks WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&websiteID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: bookmark %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("sqlite: getting bookmark %s: %w", id, err)
	}

	now := time.Now().UTC()
	res, err := r.q.exec(ctx,
		`UPDATE bookmarks SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting bookmark %s: %w", id, err)
	}
	if err := requireAffected(res, "bookmark", id); err != nil {
		return err
	}

	if err := recountWebsiteBookmarks(ctx, r.q, websiteID); err != nil {
		return err
	}

	tagIDs, err := r.tagIDs(ctx, id)
	if err != nil {
		return err
	}
	return recountTagUsage(ctx, r.q, tagIDs)
}

// recountWebsiteBookmarks sets bookmark_count of the website to its number
// of live bookmarks across all users.
func recountWebsiteBookmarks(ctx context.Context, q querier, websiteID string) error {
	_, err := q.exec(ctx,
		`UPDATE websites SET bookmark_count = (
			SELECT COUNT(*) FROM bookmarks
			WHERE website_id = websites.id AND deleted_at IS NULL
		 ), updated_at = ? WHERE id = ?`,
		time.Now().UTC(), websiteID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recounting bookmarks of website %s: %w", websiteID, err)
	}
	return nil
}

func (r *BookmarkRepo) UpdateFavoriteStatus(ctx context.Context, id string, isFavorite bool) error {
	res, err := r.q.exec(ctx,
		`UPDATE bookmarks SET is_favorite = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		isFavorite, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating favorite status of bookmark %s: %w", id, err)
	}
	return requireAffected(res, "bookmark", id)
}

func (r *BookmarkRepo) UpdateTitle(ctx context.Context, id, title string) error {
	res, err := r.q.exec(ctx,
		`UPDATE bookmarks SET title = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		title, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating title of bookmark %s: %w", id, err)
	}
	return requireAffected(res, "bookmark", id)
}

// ReplaceTags swaps the bookmark's whole tag set. It issues several
// statements, so callers run it inside a unit of work.
func (r *BookmarkRepo) ReplaceTags(ctx context.Context, bookmarkID string, tagIDs []string) error {
	previous, err := r.tagIDs(ctx, bookmarkID)
	if err != nil {
		return err
	}

	if _, err := r.q.exec(ctx, `DELETE FROM bookmark_tags WHERE bookmark_id = ?`, bookmarkID); err != nil {
		return fmt.Errorf("sqlite: clearing tags of bookmark %s: %w", bookmarkID, err)
	}

	seen := make(map[string]bool, len(tagIDs))
	for _, tagID := range tagIDs {
		if seen[tagID] {
			continue
		}
		seen[tagID] = true
		if _, err := r.q.exec(ctx,
			`INSERT INTO bookmark_tags (bookmark_id, tag_id) VALUES (?, ?)`,
			bookmarkID, tagID,
		); err != nil {
			return fmt.Errorf("sqlite: tagging bookmark %s with %s: %w", bookmarkID, tagID, mapError(err))
		}
	}

	return recountTagUsage(ctx, r.q, append(previous, tagIDs...))
}

func (r *BookmarkRepo) tagIDs(ctx context.Context, bookmarkID string) ([]string, error) {
	rows, err := r.q.query(ctx, `SELECT tag_id FROM bookmark_tags WHERE bookmark_id = ?`, bookmarkID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading tags of bookmark %s: %w", bookmarkID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// recountTagUsage sets usage_count of each tag to its number of live
// bookmarks.
func recountTagUsage(ctx context.Context, q querier, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	args := make([]any, len(tagIDs))
	for i, id := range tagIDs {
		args[i] = id
	}
	_, err := q.exec(ctx,
		`UPDATE tags SET usage_count = (
			SELECT COUNT(*) FROM bookmark_tags bt
			INNER JOIN bookmarks b ON b.id = bt.bookmark_id
			WHERE bt.tag_id = tags.id AND b.deleted_at IS NULL
		 ) WHERE id IN (`+placeholders(len(tagIDs))+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recounting tag usage: %w", err)
	}
	return nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
