package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filters narrows a trail listing. Zero-valued fields are ignored.
type Filters struct {
	ActorID          *uuid.UUID
	ActionType       ActionType
	TargetEntityID   *uuid.UUID
	TargetEntityKind string
	WorkspaceID      *uuid.UUID
	Since            *time.Time
	Until            *time.Time
	// Search matches a substring anywhere in the JSON-encoded metadata.
	Search string
	Limit  int
}

// Store is the append-only persistence port for trail entries. Entries are
// never updated; DeleteOlderThan exists solely for retention cleanup.
type Store interface {
	Append(ctx context.Context, entry TrailEntry) error
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int) ([]TrailEntry, error)
	ListRecent(ctx context.Context, limit int) ([]TrailEntry, error)
	ListFiltered(ctx context.Context, f Filters) ([]TrailEntry, error)
	DeleteOlderThan(ctx context.Context, action ActionType, cutoff time.Time) (int64, error)
}
