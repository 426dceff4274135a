package audit

import (
	"context"
	"log/slog"
)

// ActorMetadataProvider enriches metadata with actor context (role,
// permission summary, session identifier). Enrichment is best-effort: an
// error means the actor fields are simply omitted.
type ActorMetadataProvider interface {
	ActorMetadata(ctx context.Context, actor *Reference) (map[string]any, error)
}

// EntityMetadataProvider enriches metadata with entity context (kind,
// identifier, display name). Same best-effort contract as the actor provider.
type EntityMetadataProvider interface {
	EntityMetadata(ctx context.Context, entity Entity) (map[string]any, error)
}

// MetadataBuilder composes the metadata bundle attached to a trail entry.
type MetadataBuilder struct {
	cfg      *Config
	actors   ActorMetadataProvider
	entities EntityMetadataProvider
	logger   *slog.Logger
}

func NewMetadataBuilder(cfg *Config, actors ActorMetadataProvider, entities EntityMetadataProvider, logger *slog.Logger) *MetadataBuilder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &MetadataBuilder{cfg: cfg, actors: actors, entities: entities, logger: logger}
}

// BuildInput carries the optional parts of a metadata bundle.
type BuildInput struct {
	Changes       []FieldChange
	OperationType string
	Actor         *Reference
	Extra         map[string]any
}

// Build assembles the metadata map. The automatic_logging marker is always
// present; caller extras are merged last so they can override any computed
// default. Provider failures are logged and their fields omitted.
func (b *MetadataBuilder) Build(ctx context.Context, entity Entity, in BuildInput) map[string]any {
	metadata := map[string]any{"automatic_logging": true}

	if len(in.Changes) > 0 {
		metadata["changed_fields"] = in.Changes
	}
	if in.OperationType != "" {
		metadata["operation_type"] = in.OperationType
	}

	if in.Actor != nil && b.actors != nil {
		actorMeta, err := b.actors.ActorMetadata(ctx, in.Actor)
		if err != nil {
			b.warn(ctx, "failed to build actor metadata", err)
		} else {
			for k, v := range actorMeta {
				metadata[k] = v
			}
		}
	}

	if entity != nil && b.entities != nil {
		entityMeta, err := b.entities.EntityMetadata(ctx, entity)
		if err != nil {
			b.warn(ctx, "failed to build entity metadata", err)
		} else {
			for k, v := range entityMeta {
				metadata[k] = v
			}
		}
	}

	for k, v := range in.Extra {
		metadata[k] = v
	}

	return b.cfg.TruncateMetadata(metadata)
}

func (b *MetadataBuilder) warn(ctx context.Context, msg string, err error) {
	if b.logger != nil {
		b.logger.WarnContext(ctx, msg, "error", err)
	}
}
