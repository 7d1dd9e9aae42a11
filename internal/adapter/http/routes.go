package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Governed invocations
		r.Get("/actions", h.ListActions)
		r.Post("/invocations", h.Invoke)
		r.Post("/decisions", h.EvaluateDecision)

		// Confirmation gate
		r.Get("/confirmations", h.ListConfirmations)
		r.Post("/confirmations/{id}/resolve", h.ResolveConfirmation)
		r.Get("/runs/{id}/confirmations", h.ListRunConfirmations)
		r.Post("/runs/{id}/resume", h.ResumeRun)

		// Judge
		r.Post("/evaluations", h.EvaluateTurn)

		// Intent
		r.Post("/intent", h.GetIntent)

		// Constitution
		r.Get("/constitution", h.GetConstitution)
	})
}
