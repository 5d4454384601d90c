package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tobimarks/tobimarks-api/internal/auth"
	"github.com/tobimarks/tobimarks-api/internal/model"
	"github.com/tobimarks/tobimarks-api/internal/response"
)

type UserService interface {
	GetProfile(ctx context.Context, p auth.Principal) (*model.User, error)
}

type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleMe serves GET /users/me.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetProfile(r.Context(), principal(r))
	if err != nil {
		response.Error(w, err, h.logger)
		return
	}
	response.Success(w, map[string]any{"user": user}, response.Body{}, h.logger)
}
