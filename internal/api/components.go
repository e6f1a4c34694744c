package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListComponents returns snapshots of all components.
func (s *Server) handleListComponents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.components.Components())
}

// handleGetComponent returns a single component snapshot.
func (s *Server) handleGetComponent(w http.ResponseWriter, r *http.Request) {
	c, err := s.components.Get(chi.URLParam(r, "uid"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleRegisterComponent creates or overwrites a component. The request
// body is the configuration document (may be empty).
func (s *Server) handleRegisterComponent(w http.ResponseWriter, r *http.Request) {
	configuration := map[string]any{}
	if err := decodeOptionalBody(r, &configuration); err != nil {
		writeBadRequest(w, "invalid configuration body")
		return
	}

	c, err := s.components.Register(chi.URLParam(r, "uid"), configuration)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// handleDeleteComponent removes a component.
func (s *Server) handleDeleteComponent(w http.ResponseWriter, r *http.Request) {
	if err := s.components.Delete(chi.URLParam(r, "uid")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEnableComponent sets the enabled flag.
func (s *Server) handleEnableComponent(w http.ResponseWriter, r *http.Request) {
	if err := s.components.SetEnabled(chi.URLParam(r, "uid"), true); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDisableComponent clears the enabled flag.
func (s *Server) handleDisableComponent(w http.ResponseWriter, r *http.Request) {
	if err := s.components.SetEnabled(chi.URLParam(r, "uid"), false); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetComponentSetting returns a single setting value (null when absent).
func (s *Server) handleGetComponentSetting(w http.ResponseWriter, r *http.Request) {
	v, err := s.components.GetSetting(chi.URLParam(r, "uid"), chi.URLParam(r, "settingUID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleSetComponentSetting writes a setting. The request body is the
// JSON value.
func (s *Server) handleSetComponentSetting(w http.ResponseWriter, r *http.Request) {
	var v any
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeBadRequest(w, "invalid value body")
		return
	}

	if err := s.components.SetSetting(chi.URLParam(r, "uid"), chi.URLParam(r, "settingUID"), v); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveComponentSetting removes a setting.
func (s *Server) handleRemoveComponentSetting(w http.ResponseWriter, r *http.Request) {
	if err := s.components.RemoveSetting(chi.URLParam(r, "uid"), chi.URLParam(r, "settingUID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetComponentStatus returns a single status value (null when absent).
func (s *Server) handleGetComponentStatus(w http.ResponseWriter, r *http.Request) {
	v, err := s.components.GetStatus(chi.URLParam(r, "uid"), chi.URLParam(r, "statusUID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleSetComponentStatus writes a status value.
func (s *Server) handleSetComponentStatus(w http.ResponseWriter, r *http.Request) {
	var v any
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeBadRequest(w, "invalid value body")
		return
	}

	if err := s.components.SetStatus(chi.URLParam(r, "uid"), chi.URLParam(r, "statusUID"), v); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveComponentStatus removes a status value.
func (s *Server) handleRemoveComponentStatus(w http.ResponseWriter, r *http.Request) {
	if err := s.components.RemoveStatus(chi.URLParam(r, "uid"), chi.URLParam(r, "statusUID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeOptionalBody decodes a JSON body into v, accepting an empty body.
func decodeOptionalBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
