package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Skryldev/member-directory/db"
	"github.com/Skryldev/member-directory/repo"
)

const healthTimeout = 3 * time.Second

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HealthHandler reports whether the store is reachable.
type HealthHandler struct {
	store *db.DB
	log   *slog.Logger
}

// NewHealthHandler returns a HealthHandler probing store.
func NewHealthHandler(store *db.DB, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{store: store, log: logger}
}

// ServeHTTP answers 200 when the store answers a ping and the members table
// can be read, 503 otherwise. The endpoint is public, so no member data is
// included.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.unhealthy(w, r, err)
		return
	}

	if _, err := repo.NewMemberRepo(h.store).Count(ctx); err != nil {
		h.unhealthy(w, r, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, healthResponse{Status: "healthy", Database: "up"})
}

func (h *HealthHandler) unhealthy(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WarnContext(r.Context(), "health check failed", "error", err)
	RespondWithJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Database: "down"})
}
