package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/tobimarks/tobimarks-api/internal/embedding"
	"github.com/tobimarks/tobimarks-api/internal/model"
	"github.com/tobimarks/tobimarks-api/internal/repository"
)

var _ repository.TagRepository = (*TagRepo)(nil)

type TagRepo struct {
	q querier
}

// ListByUser returns the user's tags ordered by name. Embeddings are not
// loaded.
func (r *TagRepo) ListByUser(ctx context.Context, userID string) ([]model.Tag, error) {
	rows, err := r.q.query(ctx,
		`SELECT id, user_id, name, slug, color, usage_count, created_at, updated_at
		 FROM tags WHERE user_id = ?
		 ORDER BY name COLLATE NOCASE, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Name,
			&t.Slug,
			&t.Color,
			&t.UsageCount,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return tags, nil
}

func (r *TagRepo) FindByID(ctx context.Context, id string) (*model.Tag, error) {
	var (
		t    model.Tag
		blob []byte
	)
	err := r.q.queryRow(ctx,
		`SELECT id, user_id, name, slug, color, embedding, usage_count, created_at, updated_at
		 FROM tags WHERE id = ?`,
		id,
	).Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		&t.Slug,
		&t.Color,
		&blob,
		&t.UsageCount,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting tag %s: %w", id, err)
	}

	if t.Embedding, err = embedding.Decode(blob); err != nil {
		return nil, fmt.Errorf("sqlite: decoding embedding of tag %s: %w", id, err)
	}
	return &t, nil
}

// Create inserts a tag. A second tag with the same slug for the same user
// fails with repository.ErrUniqueViolation.
func (r *TagRepo) Create(ctx context.Context, tag *model.Tag) error {
	now := time.Now().UTC()
	tag.ID = xid.New().String()
	tag.CreatedAt = now
	tag.UpdatedAt = now

	_, err := r.q.exec(ctx,
		`INSERT INTO tags (id, user_id, name, slug, color, embedding, usage_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tag.ID,
		tag.UserID,
		tag.Name,
		tag.Slug,
		tag.Color,
		embeddingArg(tag.Embedding),
		tag.UsageCount,
		tag.CreatedAt,
		tag.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting tag: %w", mapError(err))
	}
	return nil
}

// Update writes name, slug, color and embedding.
func (r *TagRepo) Update(ctx context.Context, tag *model.Tag) error {
	tag.UpdatedAt = time.Now().UTC()

	res, err := r.q.exec(ctx,
		`UPDATE tags SET name = ?, slug = ?, color = ?, embedding = ?, updated_at = ?
		 WHERE id = ?`,
		tag.Name,
		tag.Slug,
		tag.Color,
		embeddingArg(tag.Embedding),
		tag.UpdatedAt,
		tag.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating tag %s: %w", tag.ID, mapError(err))
	}
	return requireAffected(res, "tag", tag.ID)
}

// Delete removes the tag. Its bookmark associations go with it through
// ON DELETE CASCADE.
func (r *TagRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.exec(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting tag %s: %w", id, err)
	}
	return requireAffected(res, "tag", id)
}

func (r *TagRepo) ExistsByIDAndUserID(ctx context.Context, id, userID string) (bool, error) {
	var count int
	err := r.q.queryRow(ctx,
		`SELECT COUNT(*) FROM tags WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking tag %s: %w", id, err)
	}
	return count > 0, nil
}

func (r *TagRepo) CountOwned(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	var count int
	err := r.q.queryRow(ctx,
		`SELECT COUNT(*) FROM tags WHERE user_id = ? AND id IN (`+placeholders(len(ids))+`)`,
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting owned tags: %w", err)
	}
	return count, nil
}

// embeddingArg binds a missing vector as NULL rather than an empty blob.
func embeddingArg(v []float32) any {
	if v == nil {
		return nil
	}
	return embedding.Encode(v)
}
