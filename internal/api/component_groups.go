package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListAreas returns component group snapshots shaped for the
// polling client; areas and groups are the same entity in this hub.
func (s *Server) handleListAreas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.groups.Groups())
}

// handleListGroups returns snapshots of all component groups.
func (s *Server) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.groups.Groups())
}

// handleGetGroup returns a single group snapshot.
func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.groups.Get(chi.URLParam(r, "uid"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// handleRegisterGroup creates or overwrites a group. The request body is
// the configuration document (may be empty).
func (s *Server) handleRegisterGroup(w http.ResponseWriter, r *http.Request) {
	configuration := map[string]any{}
	if err := decodeOptionalBody(r, &configuration); err != nil {
		writeBadRequest(w, "invalid configuration body")
		return
	}

	g, err := s.groups.Register(chi.URLParam(r, "uid"), configuration)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// handleDeleteGroup removes a group.
func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.Delete(chi.URLParam(r, "uid")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAssignComponent adds a component to a group (idempotent).
func (s *Server) handleAssignComponent(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.AssignComponent(chi.URLParam(r, "uid"), chi.URLParam(r, "componentUID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUnassignComponent removes a component from a group (idempotent).
func (s *Server) handleUnassignComponent(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.UnassignComponent(chi.URLParam(r, "uid"), chi.URLParam(r, "componentUID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAssignMacro adds a macro to a group (idempotent).
func (s *Server) handleAssignMacro(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.AssignMacro(chi.URLParam(r, "uid"), chi.URLParam(r, "macroUID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUnassignMacro removes a macro from a group (idempotent).
func (s *Server) handleUnassignMacro(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.UnassignMacro(chi.URLParam(r, "uid"), chi.URLParam(r, "macroUID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetGroupSetting returns a single group setting value.
func (s *Server) handleGetGroupSetting(w http.ResponseWriter, r *http.Request) {
	v, err := s.groups.GetSetting(chi.URLParam(r, "uid"), chi.URLParam(r, "settingUID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleSetGroupSetting writes a group setting.
func (s *Server) handleSetGroupSetting(w http.ResponseWriter, r *http.Request) {
	var v any
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeBadRequest(w, "invalid value body")
		return
	}

	if err := s.groups.SetSetting(chi.URLParam(r, "uid"), chi.URLParam(r, "settingUID"), v); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveGroupSetting removes a group setting.
func (s *Server) handleRemoveGroupSetting(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.RemoveSetting(chi.URLParam(r, "uid"), chi.URLParam(r, "settingUID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetAssociationSetting returns a setting on a (group, component)
// edge. Missing associations read as null.
func (s *Server) handleGetAssociationSetting(w http.ResponseWriter, r *http.Request) {
	v, err := s.groups.GetComponentAssociationSetting(
		chi.URLParam(r, "uid"),
		chi.URLParam(r, "componentUID"),
		chi.URLParam(r, "settingUID"),
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleSetAssociationSetting writes a setting on a (group, component) edge.
func (s *Server) handleSetAssociationSetting(w http.ResponseWriter, r *http.Request) {
	var v any
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeBadRequest(w, "invalid value body")
		return
	}

	err := s.groups.SetComponentAssociationSetting(
		chi.URLParam(r, "uid"),
		chi.URLParam(r, "componentUID"),
		chi.URLParam(r, "settingUID"),
		v,
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveAssociationSetting removes a setting on a (group, component) edge.
func (s *Server) handleRemoveAssociationSetting(w http.ResponseWriter, r *http.Request) {
	err := s.groups.RemoveComponentAssociationSetting(
		chi.URLParam(r, "uid"),
		chi.URLParam(r, "componentUID"),
		chi.URLParam(r, "settingUID"),
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
