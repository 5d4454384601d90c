// Package handler adapts HTTP requests to service calls. Handlers decode
// and validate the body, read the caller from the request context, call one
// service method and write the envelope. They hold no business rules.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tobimarks/tobimarks-api/internal/apperror"
	"github.com/tobimarks/tobimarks-api/internal/auth"
	"github.com/tobimarks/tobimarks-api/internal/response"
	"github.com/tobimarks/tobimarks-api/internal/validation"
)

const maxBodyBytes = 1 << 20

// decoder reads JSON bodies and checks them against their validate tags.
type decoder struct {
	validator *validation.Validator
	logger    *slog.Logger
}

// bind decodes the body of r into dst and validates it. On failure it has
// already written the error response and returns false.
func (d decoder) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		response.Error(w, err, d.logger)
		return false
	}
	if err := d.validator.Validate(dst); err != nil {
		response.Error(w, err, d.logger)
		return false
	}
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return apperror.ValidationFailed("", "Request body is required")
	case errors.As(err, &maxErr):
		return apperror.ValidationFailed("", "Request body is too large")
	default:
		return apperror.ValidationFailed("", "Request body is not valid JSON")
	}
}

// principal returns the caller set by auth.RequireAuth. Routes using it
// are always mounted behind that middleware.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

// queryInt reads an optional positive integer query parameter.
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperror.ValidationFailed(key, key+" must be a positive integer")
	}
	return n, nil
}
