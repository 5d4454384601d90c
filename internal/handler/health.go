package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/tobimarks/tobimarks-api/internal/response"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// HandleHealth serves GET /healthz: 200 when the database answers within
// two seconds, 503 otherwise.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		response.JSON(w, http.StatusServiceUnavailable, map[string]any{
			"success":   false,
			"message":   "Database unavailable",
			"errorCode": "DATABASE_UNAVAILABLE",
		}, h.logger)
		return
	}
	response.Success(w, map[string]string{"status": "ok"}, response.Body{}, h.logger)
}
