// Package response writes the JSON envelope every endpoint answers with.
//
// Success:
//
//	{"success": true, "data": ..., "message": "...", "meta": {...}}
//
// Failure:
//
//	{"success": false, "message": "...", "errorCode": "...", "details": {...}}
//
// message, meta and details are omitted when empty.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tobimarks/tobimarks-api/internal/apperror"
)

type successEnvelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

type errorEnvelope struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	ErrorCode string            `json:"errorCode"`
	Details   map[string]string `json:"details,omitempty"`
}

// Body is the optional part of a success envelope.
type Body struct {
	Message string
	Meta    any
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// Success writes a success envelope with status 200.
func Success(w http.ResponseWriter, data any, body Body, logger *slog.Logger) {
	Write(w, http.StatusOK, data, body, logger)
}

// Created writes a success envelope with status 201.
func Created(w http.ResponseWriter, data any, body Body, logger *slog.Logger) {
	Write(w, http.StatusCreated, data, body, logger)
}

// Write writes a success envelope with any status.
func Write(w http.ResponseWriter, status int, data any, body Body, logger *slog.Logger) {
	JSON(w, status, successEnvelope{
		Success: true,
		Data:    data,
		Message: body.Message,
		Meta:    body.Meta,
	}, logger)
}

// Error maps err to a status and writes the failure envelope. Errors that
// are not *apperror.AppError become a 500 whose cause is logged but never
// sent to the client.
func Error(w http.ResponseWriter, err error, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("unhandled error", slog.String("error", err.Error()))
		JSON(w, http.StatusInternalServerError, errorEnvelope{
			Message:   "Internal server error",
			ErrorCode: apperror.CodeInternal,
		}, logger)
		return
	}

	status := Status(err)
	if status >= http.StatusInternalServerError {
		logger.Warn("request failed", slog.String("error", apperror.Describe(appErr)), slog.String("cause", err.Error()))
	}

	JSON(w, status, errorEnvelope{
		Message:   appErr.Message,
		ErrorCode: appErr.Code,
		Details:   details(appErr),
	}, logger)
}

func details(e *apperror.AppError) map[string]string {
	if len(e.Details) > 0 {
		return e.Details
	}
	if e.Field != "" {
		return map[string]string{e.Field: e.Message}
	}
	return nil
}

// Status returns the HTTP status for err's kind.
func Status(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrTimeout):
		return http.StatusRequestTimeout
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
