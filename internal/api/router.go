package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Web delivery mode: stateless submission and streaming Q&A
		r.Post("/recommendation", apiHandler.RecommendationHandler)
		r.Get("/ask", apiHandler.AskHandler)

		// Chat-platform delivery mode: session-driven questionnaire flow
		r.Post("/sessions", apiHandler.CreateSessionHandler)
		r.Get("/sessions/{sessionID}", apiHandler.GetSessionHandler)
		r.Post("/sessions/{sessionID}/events", apiHandler.SessionEventHandler)
		r.Post("/sessions/{sessionID}/restart", apiHandler.RestartSessionHandler)
		r.Post("/sessions/{sessionID}/ask", apiHandler.FollowUpHandler)

		// Operator view of the interaction log
		r.Get("/activity", apiHandler.ActivityHandler)
	})

	return r
}
