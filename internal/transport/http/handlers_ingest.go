package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fyndora/internal/audit/async"
	"fyndora/internal/platform/requestctx"
)

// ingestWait bounds how long an ingest request waits for its task before
// answering 202. Work keeps running after the response either way.
const ingestWait = 5 * time.Second

// IngestHandler accepts audit entries over HTTP and feeds them to the task
// queue. Service-to-service callers use it when they cannot link the audit
// packages directly.
type IngestHandler struct {
	submitter *async.Submitter
	logger    *slog.Logger
}

func NewIngestHandler(submitter *async.Submitter, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{submitter: submitter, logger: logger}
}

func (h *IngestHandler) Register(r chi.Router) {
	r.Post("/audit-logs", h.handleCreate)
	r.Post("/audit-logs/bulk", h.handleBulk)
}

func (h *IngestHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req async.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.ActionType == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "action_type is required")
		return
	}
	if req.ActorID == nil {
		if id := requestctx.UserID(ctx); id != uuid.Nil {
			req.ActorID = &id
		}
	}

	handle, err := h.submitter.SubmitCreate(ctx, req)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "audit queue unavailable")
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, ingestWait)
	defer cancel()
	auditID, err := handle.Wait(waitCtx)
	if err != nil || auditID == "" {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"audit_id": auditID})
}

func (h *IngestHandler) handleBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqs []async.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "empty batch")
		return
	}

	if _, err := h.submitter.SubmitBulk(ctx, reqs); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "audit queue unavailable")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":          "queued",
		"total_submitted": len(reqs),
	})
}
