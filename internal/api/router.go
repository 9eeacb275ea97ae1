package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/devtally/internal/tallyservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *tallyservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/tallies", h.ListTallies)
	r.Delete("/tallies", h.ResetTallies)
	r.Get("/tallies/{handle}", h.GetTally)
	r.Post("/tallies/{handle}/{kind}", h.RecordTally)

	r.Get("/report", h.Report)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
