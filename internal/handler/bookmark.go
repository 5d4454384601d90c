package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tobimarks/tobimarks-api/internal/auth"
	"github.com/tobimarks/tobimarks-api/internal/model"
	"github.com/tobimarks/tobimarks-api/internal/response"
	"github.com/tobimarks/tobimarks-api/internal/service"
	"github.com/tobimarks/tobimarks-api/internal/validation"
)

// BookmarkService is satisfied by *service.BookmarkService.
type BookmarkService interface {
	Create(ctx context.Context, p auth.Principal, rawURL string) (*model.Bookmark, error)
	List(ctx context.Context, p auth.Principal, page, perPage int) ([]model.BookmarkListItem, service.Pagination, error)
	Update(ctx context.Context, p auth.Principal, id string, in service.UpdateBookmarkInput) (*model.Bookmark, error)
	Delete(ctx context.Context, p auth.Principal, id string) error
	MarkAsFavorite(ctx context.Context, p auth.Principal, id string) error
	UnmarkAsFavorite(ctx context.Context, p auth.Principal, id string) error
}

type BookmarkHandler struct {
	bookmarks BookmarkService
	decoder
}

func NewBookmarkHandler(bookmarks BookmarkService, v *validation.Validator, logger *slog.Logger) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: bookmarks, decoder: decoder{validator: v, logger: logger}}
}

type createBookmarkRequest struct {
	URL string `json:"url" validate:"required,max=2048,httpurl"`
}

type updateBookmarkRequest struct {
	Title *string   `json:"title" validate:"omitempty,max=500"`
	Tags  *[]string `json:"tags" validate:"omitempty,max=100,dive,required"`
}

type bookmarkSummary struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// HandleCreate serves POST /bookmarks. The page is fetched before the
// response is written, so this is the slowest route.
func (h *BookmarkHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createBookmarkRequest
	if !h.bind(w, r, &req) {
		return
	}

	b, err := h.bookmarks.Create(r.Context(), principal(r), strings.TrimSpace(req.URL))
	if err != nil {
		response.Error(w, err, h.logger)
		return
	}
	response.Created(w, map[string]any{
		"bookmark": bookmarkSummary{ID: b.ID, URL: b.URL, Title: b.Title, Description: b.Description},
	}, response.Body{Message: "Bookmark created successfully"}, h.logger)
}

// HandleList serves GET /bookmarks?page=&perPage=.
func (h *BookmarkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		response.Error(w, err, h.logger)
		return
	}
	perPage, err := queryInt(r, "perPage", service.DefaultPerPage)
	if err != nil {
		response.Error(w, err, h.logger)
		return
	}

	items, meta, err := h.bookmarks.List(r.Context(), principal(r), page, perPage)
	if err != nil {
		response.Error(w, err, h.logger)
		return
	}
	response.Success(w, map[string]any{"bookmarks": items}, response.Body{Meta: meta}, h.logger)
}

func (h *BookmarkHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateBookmarkRequest
	if !h.bind(w, r, &req) {
		return
	}

	b, err := h.bookmarks.Update(r.Context(), principal(r), chi.URLParam(r, "id"), service.UpdateBookmarkInput{
		Title: req.Title,
		Tags:  req.Tags,
	})
	if err != nil {
		response.Error(w, err, h.logger)
		return
	}
	response.Success(w, map[string]any{
		"bookmark": map[string]any{"id": b.ID, "title": b.Title},
	}, response.Body{Message: "Bookmark updated successfully"}, h.logger)
}

func (h *BookmarkHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.bookmarks.Delete(r.Context(), principal(r), id); err != nil {
		response.Error(w, err, h.logger)
		return
	}
	response.Success(w, map[string]any{
		"bookmark": map[string]string{"id": id},
	}, response.Body{Message: "Bookmark deleted successfully"}, h.logger)
}

func (h *BookmarkHandler) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	h.setFavorite(w, r, true)
}

func (h *BookmarkHandler) HandleUnfavorite(w http.ResponseWriter, r *http.Request) {
	h.setFavorite(w, r, false)
}

func (h *BookmarkHandler) setFavorite(w http.ResponseWriter, r *http.Request, favorite bool) {
	id := chi.URLParam(r, "id")

	var err error
	msg := "Bookmark marked as favorite"
	if favorite {
		err = h.bookmarks.MarkAsFavorite(r.Context(), principal(r), id)
	} else {
		err = h.bookmarks.UnmarkAsFavorite(r.Context(), principal(r), id)
		msg = "Bookmark removed from favorites"
	}
	if err != nil {
		response.Error(w, err, h.logger)
		return
	}
	response.Success(w, map[string]any{
		"bookmark": map[string]any{"id": id, "isFavorite": favorite},
	}, response.Body{Message: msg}, h.logger)
}
