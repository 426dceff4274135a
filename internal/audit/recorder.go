package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Recorder is the synchronous write path for trail entries.
//
// Create and its specialized variants never fail outward: persistence
// errors, contract errors and panics are logged and surface as a nil entry.
// Record returns the underlying error for callers that need to classify it,
// such as the async task layer's retry policy; it still never panics.
type Recorder struct {
	store    Store
	registry *Registry
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
}

func NewRecorder(store Store, registry *Registry, logger *slog.Logger, metrics *Metrics) *Recorder {
	return &Recorder{
		store:    store,
		registry: registry,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Record persists one trail entry and returns it, or the persistence error.
func (r *Recorder) Record(ctx context.Context, actor *Reference, action ActionType, target, workspace *Reference, metadata map[string]any) (entry *TrailEntry, err error) {
	defer func() {
		if p := recover(); p != nil {
			entry, err = nil, fmt.Errorf("audit record panicked: %v", p)
		}
	}()

	if action == "" || (r.registry != nil && !r.registry.KnownAction(action)) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	e := TrailEntry{
		AuditID:      uuid.New(),
		Actor:        actor,
		ActionType:   action,
		TargetEntity: target,
		Workspace:    workspace,
		Metadata:     metadata,
		CreatedAt:    r.now().UTC(),
	}
	if err := r.store.Append(ctx, e); err != nil {
		return nil, fmt.Errorf("append trail entry: %w", err)
	}
	return &e, nil
}

// Create persists one trail entry. Any failure is logged and yields nil;
// this is the contract every signal adapter relies on.
func (r *Recorder) Create(ctx context.Context, actor *Reference, action ActionType, target, workspace *Reference, metadata map[string]any) *TrailEntry {
	entry, err := r.Record(ctx, actor, action, target, workspace, metadata)
	if err != nil {
		r.metrics.IncRecordFailure()
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "audit trail creation failed",
				"action_type", action,
				"error", err,
			)
		}
		return nil
	}
	r.metrics.IncRecorded()
	return entry
}

// CreateAuthenticationEvent records a login/logout style event. The fixed
// scaffolding tags the entry with its category; callers supply the rest.
func (r *Recorder) CreateAuthenticationEvent(ctx context.Context, actor *Reference, action ActionType, metadata map[string]any) *TrailEntry {
	scaffolded := map[string]any{"event_category": string(CategoryAuthentication)}
	for k, v := range metadata {
		scaffolded[k] = v
	}
	return r.Create(ctx, actor, action, nil, nil, scaffolded)
}

// CreateSecurityEvent records a security-relevant event such as a failed
// login or an access violation.
func (r *Recorder) CreateSecurityEvent(ctx context.Context, actor *Reference, action ActionType, target *Reference, metadata map[string]any) *TrailEntry {
	scaffolded := map[string]any{
		"event_category": string(CategorySecurity),
		"severity":       "warning",
	}
	for k, v := range metadata {
		scaffolded[k] = v
	}
	return r.Create(ctx, actor, action, target, nil, scaffolded)
}
