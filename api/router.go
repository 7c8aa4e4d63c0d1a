package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Skryldev/member-directory/db"
	"github.com/Skryldev/member-directory/telemetry"
)

// Deps are the collaborators NewRouter wires together.
type Deps struct {
	Members     MemberService
	Store       *db.DB
	Credentials Credentials
	Logger      *slog.Logger

	// Metrics is optional. When set, requests are recorded and /metrics is served.
	Metrics *telemetry.Metrics

	LegacyStatusCodes bool
}

// NewRouter builds the HTTP handler for the service.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var obs RequestObserver
	if d.Metrics != nil {
		obs = d.Metrics
	}

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		RespondWithError(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	r.Use(RequestID)
	r.Use(AccessLog(logger, obs))
	r.Use(Recoverer(logger))

	r.Method(http.MethodGet, "/health", NewHealthHandler(d.Store, logger))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	members := NewMemberHandler(d.Members, logger, d.LegacyStatusCodes)
	r.Group(func(r chi.Router) {
		r.Use(BasicAuth(d.Credentials))

		r.Get("/member", members.List)
		r.Post("/member", members.Create)
		r.Get("/member/{id}", members.Get)
		r.Put("/member/{id}", members.Update)
		r.Patch("/member/{id}", members.Update)
		r.Delete("/member/{id}", members.Delete)
	})

	return r
}
