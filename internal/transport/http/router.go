// Package httptransport wires the HTTP API: audit trail listings, login and
// logout, health, and Prometheus metrics.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fyndora/internal/platform/token"
)

// NewRouter assembles the full route tree. The audit listing and logout
// endpoints sit behind bearer auth; login, health, and metrics are public.
func NewRouter(audit *Handler, ingest *IngestHandler, auth *AuthHandler, tokens *token.Service, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(Recovery(logger))
	r.Use(RequestID)
	r.Use(RequestMeta)
	r.Use(Logger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	auth.Register(r)

	r.Group(func(protected chi.Router) {
		protected.Use(RequireAuth(tokens, logger))
		audit.Register(protected)
		ingest.Register(protected)
		auth.RegisterProtected(protected)
	})

	return r
}
