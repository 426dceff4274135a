package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fyndora/internal/audit"
	"fyndora/internal/domain"
	"fyndora/internal/platform/lockout"
	"fyndora/internal/platform/requestctx"
	"fyndora/internal/platform/secrets"
	"fyndora/internal/platform/token"
)

const accessTokenTTL = time.Hour

// AuthHandler serves login and logout. Both paths feed the audit trail:
// successes, failures, and logouts each leave an entry. Repeated failures
// against the same username trip the lockout guard.
type AuthHandler struct {
	accounts *domain.Accounts
	tokens   *token.Service
	events   *audit.AuthEvents
	guard    *lockout.Guard
	logger   *slog.Logger
}

func NewAuthHandler(accounts *domain.Accounts, tokens *token.Service, events *audit.AuthEvents, guard *lockout.Guard, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens, events: events, guard: guard, logger: logger}
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

// RegisterProtected mounts the routes that require a valid token.
func (h *AuthHandler) RegisterProtected(r chi.Router) {
	r.Post("/auth/logout", h.handleLogout)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if h.guard.Locked(ctx, req.Username) {
		h.events.OnLoginFailed(ctx, map[string]string{"username": req.Username}, requestContext(r))
		writeError(w, http.StatusTooManyRequests, "locked", "too many failed attempts, try again later")
		return
	}

	user, err := h.accounts.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			if h.guard.OnFailure(ctx, req.Username) {
				h.logger.WarnContext(ctx, "account locked after repeated failures", "username", req.Username)
			}
			h.events.OnLoginFailed(ctx, map[string]string{"username": req.Username}, requestContext(r))
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
			return
		}
		h.logger.ErrorContext(ctx, "login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "login failed")
		return
	}

	h.guard.OnSuccess(ctx, req.Username)

	sessionID, err := secrets.Generate()
	if err != nil {
		h.logger.ErrorContext(ctx, "session id generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "login failed")
		return
	}
	user.SessionID = sessionID

	accessToken, err := h.tokens.Generate(user.UserID, sessionID, accessTokenTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "token generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "login failed")
		return
	}

	rc := requestContext(r)
	rc.SessionID = sessionID
	h.events.OnLoginSuccess(ctx, domain.ActorRef(user), rc)

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   int(accessTokenTTL.Seconds()),
	})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestctx.UserID(ctx)
	actor := &audit.Reference{Kind: domain.KindUser, ID: userID}
	rc := requestContext(r)
	rc.SessionID = requestctx.SessionID(ctx)
	h.events.OnLogout(ctx, actor, rc)

	w.WriteHeader(http.StatusNoContent)
}

func requestContext(r *http.Request) *audit.RequestContext {
	ctx := r.Context()
	return &audit.RequestContext{
		IPAddress: requestctx.ClientIP(ctx),
		UserAgent: requestctx.UserAgent(ctx),
		SessionID: requestctx.SessionID(ctx),
	}
}
