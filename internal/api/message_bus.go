package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/noriffik/wirehome-core/internal/bus"
)

// maxWaitTimeout caps client-supplied wait_for timeouts so a stuck
// client cannot pin a request worker indefinitely.
const maxWaitTimeout = 60 * time.Second

// handleWaitFor implements the long-poll endpoint.
//
//	POST /api/v1/message_bus/wait_for?timeout=<sec>&since=<unix_ms>
//
// The body is a JSON array of filter objects; a message matches if it
// matches any one filter. The response is the array of matched messages,
// or an empty array when the timeout elapses first. When since is
// supplied, matching history messages newer than it are returned
// immediately.
func (s *Server) handleWaitFor(w http.ResponseWriter, r *http.Request) {
	var filters []bus.Filter
	if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
		writeBadRequest(w, "body must be a JSON array of filter objects")
		return
	}

	timeout := s.waitTimeout
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			writeBadRequest(w, "timeout must be a non-negative integer (seconds)")
			return
		}
		timeout = time.Duration(seconds) * time.Second
	}
	if timeout > maxWaitTimeout {
		timeout = maxWaitTimeout
	}

	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "since must be a Unix millisecond timestamp")
			return
		}
		since = parsed
	}

	messages := s.bus.Wait(r.Context(), filters, since, timeout)
	if messages == nil {
		messages = []bus.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// handleBusHistory returns the bus history ring, oldest first.
func (s *Server) handleBusHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.bus.History())
}
