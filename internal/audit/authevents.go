package audit

import (
	"context"
	"log/slog"
)

// RequestContext carries the request-scoped details an authentication event
// may want to record. All fields are optional and the adapters tolerate a
// nil context entirely.
type RequestContext struct {
	IPAddress string
	UserAgent string
	SessionID string
}

// AuthEvents produces audit entries for authentication activity. Every
// producer is wrapped in the same fault-swallowing safeguard as the
// lifecycle sink.
type AuthEvents struct {
	recorder *Recorder
	cfg      *Config
	logger   *slog.Logger
	metrics  *Metrics
}

func NewAuthEvents(recorder *Recorder, cfg *Config, logger *slog.Logger, metrics *Metrics) *AuthEvents {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &AuthEvents{recorder: recorder, cfg: cfg, logger: logger, metrics: metrics}
}

// OnLoginSuccess records a successful session login.
func (a *AuthEvents) OnLoginSuccess(ctx context.Context, actor *Reference, req *RequestContext) {
	safeguard(ctx, a.logger, a.metrics, "login_success", func(ctx context.Context) error {
		if !a.cfg.EnableAutomaticLogging {
			return nil
		}
		metadata := map[string]any{
			"login_method":      "session",
			"automatic_logging": true,
		}
		addRequestContext(metadata, req)
		a.recorder.CreateAuthenticationEvent(ctx, actor, ActionLoginSuccess, metadata)
		return nil
	})
}

// OnLogout records a user-initiated logout.
func (a *AuthEvents) OnLogout(ctx context.Context, actor *Reference, req *RequestContext) {
	safeguard(ctx, a.logger, a.metrics, "logout", func(ctx context.Context) error {
		if !a.cfg.EnableAutomaticLogging {
			return nil
		}
		metadata := map[string]any{
			"logout_method":     "user_initiated",
			"automatic_logging": true,
		}
		addRequestContext(metadata, req)
		a.recorder.CreateAuthenticationEvent(ctx, actor, ActionLogout, metadata)
		return nil
	})
}

// OnLoginFailed records a failed login attempt as a security event. There is
// no actor: the credentials never matched a principal. Works with empty
// credentials and a nil request context.
func (a *AuthEvents) OnLoginFailed(ctx context.Context, credentials map[string]string, req *RequestContext) {
	safeguard(ctx, a.logger, a.metrics, "login_failed", func(ctx context.Context) error {
		if !a.cfg.EnableAutomaticLogging {
			return nil
		}
		metadata := map[string]any{
			"attempted_username": credentials["username"],
			"failure_reason":     "invalid_credentials",
			"automatic_logging":  true,
		}
		addRequestContext(metadata, req)
		a.recorder.CreateSecurityEvent(ctx, nil, ActionLoginFailed, nil, metadata)
		return nil
	})
}

func addRequestContext(metadata map[string]any, req *RequestContext) {
	if req == nil {
		return
	}
	if req.IPAddress != "" {
		metadata["ip_address"] = req.IPAddress
	}
	if req.UserAgent != "" {
		metadata["user_agent"] = req.UserAgent
	}
	if req.SessionID != "" {
		metadata["session_id"] = req.SessionID
	}
}
