package audit

import (
	"context"
	"log/slog"
)

const fieldDeletedAt = "deleted_at"

// Sink is the lifecycle event port business services emit to after their own
// transaction work. One Emit call produces at most one trail entry; every
// failure inside the sink is swallowed and logged, never propagated.
type Sink struct {
	registry *Registry
	recorder *Recorder
	builder  *MetadataBuilder
	cfg      *Config
	logger   *slog.Logger
	metrics  *Metrics
}

func NewSink(registry *Registry, recorder *Recorder, builder *MetadataBuilder, cfg *Config, logger *slog.Logger, metrics *Metrics) *Sink {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Sink{
		registry: registry,
		recorder: recorder,
		builder:  builder,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// EmitCreated records the creation of an entity. The full tracked state is
// captured as a change list with nil old values.
func (s *Sink) EmitCreated(ctx context.Context, entity Entity, actor *Reference, extra map[string]any) {
	safeguard(ctx, s.logger, s.metrics, "created", func(ctx context.Context) error {
		model, ok := s.eligible(entity)
		if !ok {
			return nil
		}

		snapshot := entity.Snapshot()
		changes := CaptureChanges(s.cfg, nil, snapshot, model.TrackedFields)
		extra = s.withTrackedState(extra, snapshot, model.TrackedFields)

		metadata := s.builder.Build(ctx, entity, BuildInput{
			Changes:       changes,
			OperationType: "create",
			Actor:         actor,
			Extra:         extra,
		})
		s.recorder.Create(ctx, actor, model.ActionTypes[PhaseCreate], Ref(entity), workspaceRef(entity), metadata)
		return nil
	})
}

// EmitUpdated records an update given the pre-save snapshot. A save that
// changed no tracked field produces no trail entry. Soft deletions (the
// deleted_at field transitioning from nil) and status transitions are given
// their specific action types when the kind configures them.
func (s *Sink) EmitUpdated(ctx context.Context, entity Entity, old Snapshot, actor *Reference, extra map[string]any) {
	safeguard(ctx, s.logger, s.metrics, "updated", func(ctx context.Context) error {
		model, ok := s.eligible(entity)
		if !ok {
			return nil
		}

		snapshot := entity.Snapshot()
		changes := CaptureChanges(s.cfg, old, snapshot, model.TrackedFields)
		if len(changes) == 0 {
			return nil
		}

		action := model.ActionTypes[PhaseUpdate]
		operation := "update"
		extra = s.withTrackedState(extra, snapshot, model.TrackedFields)

		if change, ok := softDeletion(changes); ok {
			if deleteAction, has := model.ActionTypes[PhaseDelete]; has {
				action = deleteAction
				operation = "delete"
				extra["soft_delete"] = true
				if change.NewValue != nil {
					extra["deletion_timestamp"] = *change.NewValue
				}
			}
		} else if change, ok := statusChange(changes); ok {
			if statusAction, has := model.ActionTypes[PhaseStatusChange]; has {
				action = statusAction
				operation = "status_change"
				extra["old_status"] = deref(change.OldValue)
				extra["new_status"] = deref(change.NewValue)
			}
		}

		metadata := s.builder.Build(ctx, entity, BuildInput{
			Changes:       changes,
			OperationType: operation,
			Actor:         actor,
			Extra:         extra,
		})
		s.recorder.Create(ctx, actor, action, Ref(entity), workspaceRef(entity), metadata)
		return nil
	})
}

// EmitDeleted records a hard deletion. The entity is treated as removed in
// its entirety, so no field diff is computed.
func (s *Sink) EmitDeleted(ctx context.Context, entity Entity, actor *Reference, extra map[string]any) {
	safeguard(ctx, s.logger, s.metrics, "deleted", func(ctx context.Context) error {
		model, ok := s.eligible(entity)
		if !ok {
			return nil
		}

		extra = s.withTrackedState(extra, entity.Snapshot(), model.TrackedFields)
		metadata := s.builder.Build(ctx, entity, BuildInput{
			OperationType: "delete",
			Actor:         actor,
			Extra:         extra,
		})
		s.recorder.Create(ctx, actor, model.ActionTypes[PhaseDelete], Ref(entity), workspaceRef(entity), metadata)
		return nil
	})
}

// eligible gates every emit: automatic logging must be on and the kind
// registered. Unregistered kinds are silently skipped.
func (s *Sink) eligible(entity Entity) (ModelConfig, bool) {
	if entity == nil || !s.cfg.EnableAutomaticLogging {
		return ModelConfig{}, false
	}
	return s.registry.Config(entity.EntityKind())
}

// withTrackedState copies the serialized current value of each tracked field
// into the extras, giving each entry a self-contained view of the entity.
func (s *Sink) withTrackedState(extra map[string]any, snapshot Snapshot, fields []string) map[string]any {
	merged := make(map[string]any, len(extra)+len(fields))
	for _, f := range fields {
		if !snapshot.Has(f) {
			continue
		}
		if v := SerializeValue(snapshot.Field(f)); v != nil {
			merged[f] = *v
		}
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func workspaceRef(entity Entity) *Reference {
	if scoped, ok := entity.(WorkspaceScoped); ok {
		return scoped.WorkspaceRef()
	}
	return nil
}

func softDeletion(changes []FieldChange) (FieldChange, bool) {
	for _, c := range changes {
		if c.Field == fieldDeletedAt && c.OldValue == nil && c.NewValue != nil {
			return c, true
		}
	}
	return FieldChange{}, false
}

func statusChange(changes []FieldChange) (FieldChange, bool) {
	for _, c := range changes {
		if c.Field == "status" {
			return c, true
		}
	}
	return FieldChange{}, false
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
