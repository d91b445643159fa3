package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/agromonitor/fieldsight/internal/api/middleware"
	"github.com/agromonitor/fieldsight/internal/api/response"
)

// Dependencies holds all handler dependencies for the router.
type Dependencies struct {
	HealthHandler      http.HandlerFunc
	BackfillHandler    http.HandlerFunc
	GetJobHandler      http.HandlerFunc
	RetryJobHandler    http.HandlerFunc
	ListSignalsHandler http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Tenant-scoped routes
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireTenant)

		r.Post("/api/v1/backfills", orNotImplemented(deps.BackfillHandler))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))
		r.Post("/api/v1/jobs/{jobID}/retry", orNotImplemented(deps.RetryJobHandler))
		r.Get("/api/v1/aois/{aoiID}/signals", orNotImplemented(deps.ListSignalsHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
