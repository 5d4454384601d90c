package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tobimarks/tobimarks-api/internal/apperror"
	"github.com/tobimarks/tobimarks-api/internal/auth"
	"github.com/tobimarks/tobimarks-api/internal/embedding"
	"github.com/tobimarks/tobimarks-api/internal/model"
	"github.com/tobimarks/tobimarks-api/internal/repository"
	"github.com/tobimarks/tobimarks-api/internal/slug"
)

const (
	CodeTagAlreadyExists = "TAG_ALREADY_EXISTS"
	CodeTagNotFound      = "TAG_NOT_FOUND"
	CodeEmbeddingFailed  = "EMBEDDING_FAILED"
)

func errTagNotFound() *apperror.AppError {
	return apperror.NotFound(CodeTagNotFound, "Tag not found")
}

// TagService manages the caller's tags. Other users' tags are reported as
// TAG_NOT_FOUND, the same as tags that do not exist.
type TagService struct {
	store    Store
	embedder embedding.Embedder // nil disables embeddings
	logger   *slog.Logger
}

func NewTagService(store Store, embedder embedding.Embedder, logger *slog.Logger) *TagService {
	return &TagService{store: store, embedder: embedder, logger: logger}
}

// TagInput is the body of a tag create or update. On update a nil Name
// keeps the current name, slug and embedding.
type TagInput struct {
	Name  *string
	Color *string
}

func (s *TagService) List(ctx context.Context, p auth.Principal) ([]model.Tag, error) {
	tags, err := s.store.Tags().ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/tag: listing tags of %s: %w", p.UserID, err)
	}
	return tags, nil
}

// Create derives the slug and embedding from the name and inserts the tag.
// A name whose slug the caller already uses fails with TAG_ALREADY_EXISTS.
func (s *TagService) Create(ctx context.Context, p auth.Principal, in TagInput) (*model.Tag, error) {
	if in.Name == nil {
		return nil, apperror.ValidationFailed("name", "Name is required")
	}
	tag := &model.Tag{UserID: p.UserID, Color: in.Color}
	if err := s.rename(ctx, tag, *in.Name); err != nil {
		return nil, err
	}

	if err := s.store.Tags().Create(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, errTagAlreadyExists()
		}
		return nil, fmt.Errorf("service/tag: creating tag: %w", err)
	}

	s.logger.Info("tag created", slog.String("userID", p.UserID), slog.String("tagID", tag.ID))
	return tag, nil
}

// Update checks ownership, then applies the new name (with a fresh slug and
// embedding) and colour.
func (s *TagService) Update(ctx context.Context, p auth.Principal, id string, in TagInput) (*model.Tag, error) {
	if err := s.requireOwned(ctx, p, id); err != nil {
		return nil, err
	}

	tag, err := s.store.Tags().FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/tag: loading tag %s: %w", id, err)
	}
	if tag == nil {
		return nil, errTagNotFound()
	}

	if in.Name != nil {
		if err := s.rename(ctx, tag, *in.Name); err != nil {
			return nil, err
		}
	}
	if in.Color != nil {
		tag.Color = in.Color
	}

	if err := s.store.Tags().Update(ctx, tag); err != nil {
		switch {
		case errors.Is(err, repository.ErrUniqueViolation):
			return nil, errTagAlreadyExists()
		case errors.Is(err, repository.ErrNotFound):
			return nil, errTagNotFound()
		}
		return nil, fmt.Errorf("service/tag: updating tag %s: %w", id, err)
	}
	return tag, nil
}

// Delete removes one of the caller's tags and its bookmark associations.
// A missing tag is TAG_NOT_FOUND here; the HTTP layer treats that as done.
func (s *TagService) Delete(ctx context.Context, p auth.Principal, id string) error {
	if err := s.requireOwned(ctx, p, id); err != nil {
		return err
	}
	if err := s.store.Tags().Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errTagNotFound()
		}
		return fmt.Errorf("service/tag: deleting tag %s: %w", id, err)
	}
	s.logger.Info("tag deleted", slog.String("userID", p.UserID), slog.String("tagID", id))
	return nil
}

func (s *TagService) requireOwned(ctx context.Context, p auth.Principal, id string) error {
	ok, err := s.store.Tags().ExistsByIDAndUserID(ctx, id, p.UserID)
	if err != nil {
		return fmt.Errorf("service/tag: checking tag %s: %w", id, err)
	}
	if !ok {
		return errTagNotFound()
	}
	return nil
}

// rename sets the name, slug and embedding of tag from name.
func (s *TagService) rename(ctx context.Context, tag *model.Tag, name string) error {
	name = strings.TrimSpace(name)
	sl := slug.Make(name)
	if sl == "" {
		return apperror.ValidationFailed("name", "Name must contain at least one letter or digit")
	}

	tag.Name = name
	tag.Slug = sl
	tag.Embedding = nil
	if s.embedder == nil {
		return nil
	}

	vec, err := s.embedder.Embed(ctx, name)
	if err != nil {
		return &apperror.AppError{
			Err:     fmt.Errorf("%w: %w", apperror.ErrUpstream, err),
			Code:    CodeEmbeddingFailed,
			Message: "Failed to generate tag embedding",
		}
	}
	tag.Embedding = vec
	return nil
}

func errTagAlreadyExists() *apperror.AppError {
	return apperror.Conflict(CodeTagAlreadyExists, "Tag already exists")
}
