package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Areas are the hub's component groups, shaped for the polling client.
		r.Get("/areas", s.handleListAreas)

		// Component endpoints
		r.Route("/components", func(r chi.Router) {
			r.Get("/", s.handleListComponents)

			r.Route("/{uid}", func(r chi.Router) {
				r.Get("/", s.handleGetComponent)
				r.Post("/", s.handleRegisterComponent)
				r.Delete("/", s.handleDeleteComponent)
				r.Post("/enable", s.handleEnableComponent)
				r.Post("/disable", s.handleDisableComponent)

				r.Route("/settings/{settingUID}", func(r chi.Router) {
					r.Get("/", s.handleGetComponentSetting)
					r.Put("/", s.handleSetComponentSetting)
					r.Delete("/", s.handleRemoveComponentSetting)
				})

				r.Route("/status/{statusUID}", func(r chi.Router) {
					r.Get("/", s.handleGetComponentStatus)
					r.Put("/", s.handleSetComponentStatus)
					r.Delete("/", s.handleRemoveComponentStatus)
				})
			})
		})

		// Component group endpoints
		r.Route("/component_groups", func(r chi.Router) {
			r.Get("/", s.handleListGroups)

			r.Route("/{uid}", func(r chi.Router) {
				r.Get("/", s.handleGetGroup)
				r.Post("/", s.handleRegisterGroup)
				r.Delete("/", s.handleDeleteGroup)

				r.Route("/settings/{settingUID}", func(r chi.Router) {
					r.Get("/", s.handleGetGroupSetting)
					r.Put("/", s.handleSetGroupSetting)
					r.Delete("/", s.handleRemoveGroupSetting)
				})

				r.Route("/components/{componentUID}", func(r chi.Router) {
					r.Put("/", s.handleAssignComponent)
					r.Delete("/", s.handleUnassignComponent)

					r.Route("/settings/{settingUID}", func(r chi.Router) {
						r.Get("/", s.handleGetAssociationSetting)
						r.Put("/", s.handleSetAssociationSetting)
						r.Delete("/", s.handleRemoveAssociationSetting)
					})
				})

				r.Route("/macros/{macroUID}", func(r chi.Router) {
					r.Put("/", s.handleAssignMacro)
					r.Delete("/", s.handleUnassignMacro)
				})
			})
		})

		// Global variables
		r.Route("/global_variables", func(r chi.Router) {
			r.Get("/", s.handleGetGlobalVariables)
			r.Route("/{uid}", func(r chi.Router) {
				r.Get("/", s.handleGetGlobalVariable)
				r.Put("/", s.handleSetGlobalVariable)
				r.Delete("/", s.handleDeleteGlobalVariable)
			})
		})

		// Notifications
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Delete("/{uid}", s.handleDeleteNotification)
		})

		// Message bus
		r.Route("/message_bus", func(r chi.Router) {
			r.Post("/wait_for", s.handleWaitFor)
			r.Get("/history", s.handleBusHistory)
		})

		// System status
		r.Get("/system/status", s.handleSystemStatus)

		// WebSocket event relay
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
