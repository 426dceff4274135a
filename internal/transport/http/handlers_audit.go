package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fyndora/internal/audit"
	"fyndora/internal/audit/query"
)

const defaultListLimit = 50

// Handler is the thin HTTP layer over the audit trail read side.
type Handler struct {
	selectors *query.Selectors
	logger    *slog.Logger
}

func NewHandler(selectors *query.Selectors, logger *slog.Logger) *Handler {
	return &Handler{selectors: selectors, logger: logger}
}

// Register mounts the audit endpoints on the router. Callers apply the auth
// middleware at the router level.
func (h *Handler) Register(r chi.Router) {
	r.Get("/workspaces/{workspaceID}/audit-logs", h.handleWorkspaceLogs)
	r.Get("/audit-logs/recent", h.handleRecentLogs)
}

func (h *Handler) handleWorkspaceLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	workspaceID, err := uuid.Parse(chi.URLParam(r, "workspaceID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid workspace id")
		return
	}

	filters, err := parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	entries, err := h.selectors.ForWorkspace(ctx, workspaceID, filters)
	if err != nil {
		h.logger.ErrorContext(ctx, "workspace audit listing failed",
			"workspace_id", workspaceID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list audit logs")
		return
	}

	writeJSON(w, http.StatusOK, listResponse(entries))
}

func (h *Handler) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.selectors.Recent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "recent audit listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list audit logs")
		return
	}

	writeJSON(w, http.StatusOK, listResponse(entries))
}

func parseFilters(r *http.Request) (audit.Filters, error) {
	q := r.URL.Query()
	f := audit.Filters{
		ActionType:       audit.ActionType(q.Get("action_type")),
		TargetEntityKind: q.Get("target_entity_kind"),
		Search:           q.Get("search"),
		Limit:            defaultListLimit,
	}

	if raw := q.Get("actor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, errInvalidParam("actor_id")
		}
		f.ActorID = &id
	}
	if raw := q.Get("target_entity_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, errInvalidParam("target_entity_id")
		}
		f.TargetEntityID = &id
	}
	if raw := q.Get("since"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, errInvalidParam("since")
		}
		f.Since = &ts
	}
	if raw := q.Get("until"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, errInvalidParam("until")
		}
		f.Until = &ts
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return f, errInvalidParam("limit")
		}
		f.Limit = n
	}
	return f, nil
}

type paramError string

func errInvalidParam(name string) error { return paramError(name) }

func (e paramError) Error() string { return "invalid " + string(e) + " parameter" }

func listResponse(entries []audit.TrailEntry) map[string]any {
	if entries == nil {
		entries = []audit.TrailEntry{}
	}
	return map[string]any{
		"results": entries,
		"count":   len(entries),
	}
}
