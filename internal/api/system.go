package api

import "net/http"

// handleSystemStatus returns the status service snapshot: hub identity,
// uptime, counter rates, and whatever providers other subsystems have
// registered.
func (s *Server) handleSystemStatus(w http.ResponseWriter, _ *http.Request) {
	if s.status == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, s.status.Snapshot())
}
