package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tobimarks/tobimarks-api/internal/apperror"
	"github.com/tobimarks/tobimarks-api/internal/auth"
	"github.com/tobimarks/tobimarks-api/internal/model"
	"github.com/tobimarks/tobimarks-api/internal/response"
	"github.com/tobimarks/tobimarks-api/internal/service"
	"github.com/tobimarks/tobimarks-api/internal/validation"
)

// TagService is satisfied by *service.TagService.
type TagService interface {
	List(ctx context.Context, p auth.Principal) ([]model.Tag, error)
	Create(ctx context.Context, p auth.Principal, in service.TagInput) (*model.Tag, error)
	Update(ctx context.Context, p auth.Principal, id string, in service.TagInput) (*model.Tag, error)
	Delete(ctx context.Context, p auth.Principal, id string) error
}

type TagHandler struct {
	tags TagService
	decoder
}

func NewTagHandler(tags TagService, v *validation.Validator, logger *slog.Logger) *TagHandler {
	return &TagHandler{tags: tags, decoder: decoder{validator: v, logger: logger}}
}

type createTagRequest struct {
	Name  string  `json:"name" validate:"required,max=100"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}

type updateTagRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=100"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}

func (h *TagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context(), principal(r))
	if err != nil {
		response.Error(w, err, h.logger)
		return
	}
	response.Success(w, map[string]any{"tags": tags}, response.Body{}, h.logger)
}

func (h *TagHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTagRequest
	if !h.bind(w, r, &req) {
		return
	}
	tag, err := h.tags.Create(r.Context(), principal(r), service.TagInput{Name: &req.Name, Color: req.Color})
	if err != nil {
		response.Error(w, err, h.logger)
		return
	}
	response.Created(w, map[string]any{"tag": tag}, response.Body{Message: "Tag created successfully"}, h.logger)
}

func (h *TagHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateTagRequest
	if !h.bind(w, r, &req) {
		return
	}
	tag, err := h.tags.Update(r.Context(), principal(r), chi.URLParam(r, "id"), service.TagInput{Name: req.Name, Color: req.Color})
	if err != nil {
		response.Error(w, err, h.logger)
		return
	}
	response.Success(w, map[string]any{"tag": tag}, response.Body{Message: "Tag updated successfully"}, h.logger)
}

// HandleDelete serves DELETE /tags/{id}. Deleting a tag that is already
// gone, or that the caller cannot see, succeeds.
func (h *TagHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.tags.Delete(r.Context(), principal(r), id)
	if err != nil && !apperror.HasCode(err, service.CodeTagNotFound) {
		response.Error(w, err, h.logger)
		return
	}
	response.Success(w, map[string]any{
		"tag": map[string]string{"id": id},
	}, response.Body{Message: "Tag deleted successfully"}, h.logger)
}
