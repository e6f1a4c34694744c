package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noriffik/wirehome-core/internal/component"
	"github.com/noriffik/wirehome-core/internal/componentgroup"
	"github.com/noriffik/wirehome-core/internal/globalvar"
	"github.com/noriffik/wirehome-core/internal/notification"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeInternal    = "internal_error"
	ErrCodeUnavailable = "shutting_down"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps a domain error onto the HTTP taxonomy:
// NotFound → 404, InvalidArgument → 400, Shutdown → 503, everything
// else (storage failures included) → 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, component.ErrComponentNotFound),
		errors.Is(err, componentgroup.ErrGroupNotFound),
		errors.Is(err, notification.ErrNotificationNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, component.ErrInvalidUID),
		errors.Is(err, component.ErrInvalidKey),
		errors.Is(err, componentgroup.ErrInvalidUID),
		errors.Is(err, componentgroup.ErrInvalidKey),
		errors.Is(err, globalvar.ErrInvalidUID),
		errors.Is(err, notification.ErrInvalidMessage):
		writeBadRequest(w, err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "hub is shutting down")
	default:
		writeInternalError(w, err.Error())
	}
}
