package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noriffik/wirehome-core/internal/notification"
)

// handleListNotifications returns all unexpired notifications, newest first.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	if s.notifications == nil {
		writeJSON(w, http.StatusOK, []notification.Notification{})
		return
	}

	list, err := s.notifications.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleDeleteNotification removes a notification.
func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	if s.notifications == nil {
		writeNotFound(w, "notification store not configured")
		return
	}

	if err := s.notifications.Delete(r.Context(), chi.URLParam(r, "uid")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetGlobalVariables returns the full variables map.
func (s *Server) handleGetGlobalVariables(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.globalVars.Snapshot())
}

// handleGetGlobalVariable returns one variable (null when absent).
func (s *Server) handleGetGlobalVariable(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.globalVars.Get(chi.URLParam(r, "uid")))
}

// handleSetGlobalVariable writes one variable. The request body is the
// JSON value.
func (s *Server) handleSetGlobalVariable(w http.ResponseWriter, r *http.Request) {
	var v any
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeBadRequest(w, "invalid value body")
		return
	}

	if err := s.globalVars.Set(chi.URLParam(r, "uid"), v); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteGlobalVariable removes one variable.
func (s *Server) handleDeleteGlobalVariable(w http.ResponseWriter, r *http.Request) {
	if err := s.globalVars.Delete(chi.URLParam(r, "uid")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
