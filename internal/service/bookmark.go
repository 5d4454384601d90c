package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tobimarks/tobimarks-api/internal/apperror"
	"github.com/tobimarks/tobimarks-api/internal/auth"
	"github.com/tobimarks/tobimarks-api/internal/metadata"
	"github.com/tobimarks/tobimarks-api/internal/model"
	"github.com/tobimarks/tobimarks-api/internal/repository"
)

const (
	CodeBookmarkAlreadyExists = "BOOKMARK_ALREADY_EXISTS"
	CodeBookmarkNotFound      = "BOOKMARK_NOT_FOUND"
)

func errBookmarkNotFound() *apperror.AppError {
	return apperror.NotFound(CodeBookmarkNotFound, "Bookmark not found")
}

// MetadataExtractor is satisfied by *metadata.Extractor.
type MetadataExtractor interface {
	Extract(ctx context.Context, rawURL string) (*metadata.Metadata, error)
}

type BookmarkService struct {
	store     Store
	extractor MetadataExtractor
	logger    *slog.Logger
}

func NewBookmarkService(store Store, extractor MetadataExtractor, logger *slog.Logger) *BookmarkService {
	return &BookmarkService{store: store, extractor: extractor, logger: logger}
}

// Create saves rawURL for the caller:
//
//  1. fetch the page metadata (extractor errors are returned as they are)
//  2. derive the site identity from the submitted URL
//  3. find the website by domain, or create it with the fetched favicon
//  4. store the canonical URL when it is on the same host, otherwise rawURL
//  5. insert the bookmark
//
// Steps 3 to 5 run in one transaction. A second bookmark of the same URL by
// the same user fails with BOOKMARK_ALREADY_EXISTS.
func (s *BookmarkService) Create(ctx context.Context, p auth.Principal, rawURL string) (*model.Bookmark, error) {
	meta, err := s.extractor.Extract(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	site, err := metadata.SiteIdentity(rawURL)
	if err != nil {
		return nil, err
	}

	bookmark := &model.Bookmark{
		UserID:        p.UserID,
		URL:           metadata.ChooseURL(rawURL, meta.CanonicalURL),
		Title:         meta.Title,
		Description:   meta.Description,
		OGTitle:       meta.OGTitle,
		OGDescription: meta.OGDescription,
		OGImageURL:    meta.OGImageURL,
	}

	err = repository.WithinTransaction(ctx, s.store, func(r repository.Repositories) error {
		website, err := r.Websites().FindByDomain(ctx, site.Domain)
		if err != nil {
			return fmt.Errorf("finding website %s: %w", site.Domain, err)
		}
		if website == nil {
			website = &model.Website{Domain: site.Domain, Name: site.Name, FaviconURL: meta.FaviconURL}
			if err := r.Websites().Create(ctx, website); err != nil {
				return fmt.Errorf("creating website %s: %w", site.Domain, err)
			}
			s.logger.Debug("website created", slog.String("domain", site.Domain))
		}

		bookmark.WebsiteID = website.ID
		if err := r.Bookmarks().Create(ctx, bookmark); err != nil {
			if errors.Is(err, repository.ErrUniqueViolation) {
				return apperror.Conflict(CodeBookmarkAlreadyExists, "Bookmark already exists")
			}
			return fmt.Errorf("creating bookmark: %w", err)
		}
		if err := r.Websites().IncrementBookmarkCount(ctx, website.ID); err != nil {
			return fmt.Errorf("counting bookmark on %s: %w", site.Domain, err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapUnlessApp("service/bookmark: creating bookmark", err)
	}

	s.logger.Info("bookmark created",
		slog.String("userID", p.UserID),
		slog.String("bookmarkID", bookmark.ID),
		slog.String("domain", site.Domain),
	)
	return bookmark, nil
}

// List returns one page of the caller's bookmarks, newest first. page
// starts at 1; out-of-range values fall back to the defaults.
func (s *BookmarkService) List(ctx context.Context, p auth.Principal, page, perPage int) ([]model.BookmarkListItem, Pagination, error) {
	page, perPage = normalizePage(page, perPage)

	items, total, err := s.store.Bookmarks().ListByUser(ctx, p.UserID, repository.ListOptions{
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("service/bookmark: listing bookmarks of %s: %w", p.UserID, err)
	}
	return items, newPagination(page, perPage, total), nil
}

// UpdateBookmarkInput holds the fields a PATCH may change. A nil field is
// left as it is; a non-nil Tags replaces the whole tag set, so an empty
// slice removes every tag.
type UpdateBookmarkInput struct {
	Title *string
	Tags  *[]string
}

// Update changes the title and/or tag set of one of the caller's
// bookmarks in a single transaction. Every tag id must belong to the
// caller, otherwise nothing is changed and TAG_NOT_FOUND is returned.
func (s *BookmarkService) Update(ctx context.Context, p auth.Principal, id string, in UpdateBookmarkInput) (*model.Bookmark, error) {
	if in.Title == nil && in.Tags == nil {
		return nil, apperror.ValidationFailed("", "Nothing to update")
	}

	var title string
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperror.ValidationFailed("title", "Title must not be empty")
		}
	}

	var updated *model.Bookmark
	err := repository.WithinTransaction(ctx, s.store, func(r repository.Repositories) error {
		ok, err := r.Bookmarks().ExistsByIDAndUserID(ctx, id, p.UserID)
		if err != nil {
			return fmt.Errorf("checking bookmark %s: %w", id, err)
		}
		if !ok {
			return errBookmarkNotFound()
		}

		if in.Title != nil {
			if err := r.Bookmarks().UpdateTitle(ctx, id, title); err != nil {
				return fmt.Errorf("updating title of %s: %w", id, err)
			}
		}

		if in.Tags != nil {
			tagIDs := dedupe(*in.Tags)
			owned, err := r.Tags().CountOwned(ctx, p.UserID, tagIDs)
			if err != nil {
				return fmt.Errorf("checking tags: %w", err)
			}
			if owned != len(tagIDs) {
				return errTagNotFound()
			}
			if err := r.Bookmarks().ReplaceTags(ctx, id, tagIDs); err != nil {
				return fmt.Errorf("replacing tags of %s: %w", id, err)
			}
		}

		updated, err = r.Bookmarks().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("reloading bookmark %s: %w", id, err)
		}
		if updated == nil {
			return errBookmarkNotFound()
		}
		return nil
	})
	if err != nil {
		return nil, wrapUnlessApp("service/bookmark: updating bookmark", err)
	}
	return updated, nil
}

// Delete soft-deletes one of the caller's bookmarks. The URL can be saved
// again afterwards.
func (s *BookmarkService) Delete(ctx context.Context, p auth.Principal, id string) error {
	err := repository.WithinTransaction(ctx, s.store, func(r repository.Repositories) error {
		ok, err := r.Bookmarks().ExistsByIDAndUserID(ctx, id, p.UserID)
		if err != nil {
			return fmt.Errorf("checking bookmark %s: %w", id, err)
		}
		if !ok {
			return errBookmarkNotFound()
		}
		if err := r.Bookmarks().SoftDelete(ctx, id); err != nil {
			return fmt.Errorf("deleting bookmark %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return wrapUnlessApp("service/bookmark: deleting bookmark", err)
	}
	s.logger.Info("bookmark deleted", slog.String("userID", p.UserID), slog.String("bookmarkID", id))
	return nil
}

func (s *BookmarkService) MarkAsFavorite(ctx context.Context, p auth.Principal, id string) error {
	return s.setFavorite(ctx, p, id, true)
}

func (s *BookmarkService) UnmarkAsFavorite(ctx context.Context, p auth.Principal, id string) error {
	return s.setFavorite(ctx, p, id, false)
}

func (s *BookmarkService) setFavorite(ctx context.Context, p auth.Principal, id string, favorite bool) error {
	bookmarks := s.store.Bookmarks()
	ok, err := bookmarks.ExistsByIDAndUserID(ctx, id, p.UserID)
	if err != nil {
		return fmt.Errorf("service/bookmark: checking bookmark %s: %w", id, err)
	}
	if !ok {
		return errBookmarkNotFound()
	}
	if err := bookmarks.UpdateFavoriteStatus(ctx, id, favorite); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errBookmarkNotFound()
		}
		return fmt.Errorf("service/bookmark: updating favorite of %s: %w", id, err)
	}
	return nil
}

// dedupe drops repeated ids, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
