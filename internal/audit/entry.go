// Package audit implements the change-tracking and audit trail pipeline.
//
// Business services report entity lifecycle events to a Sink, which diffs
// tracked fields, builds metadata, and hands the result to a Recorder for
// persistence. The whole pipeline is best-effort: nothing in this package
// ever propagates an error into the caller's business transaction.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Snapshot is a point-in-time view of an entity's fields, keyed by field name.
// Reading a missing field yields nil rather than an error so diffing never
// has to special-case absent fields.
type Snapshot map[string]any

// Field returns the value for name, or nil when absent.
func (s Snapshot) Field(name string) any {
	if s == nil {
		return nil
	}
	return s[name]
}

// Has reports whether the snapshot carries the named field.
func (s Snapshot) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s[name]
	return ok
}

// Entity is the minimal surface a domain object must expose to be audited.
type Entity interface {
	EntityKind() string
	EntityID() uuid.UUID
	Snapshot() Snapshot
}

// WorkspaceScoped is implemented by entities that belong to a workspace.
// The sink uses it to scope trail entries for per-workspace queries.
type WorkspaceScoped interface {
	WorkspaceRef() *Reference
}

// Reference is a persisted pointer to an entity: kind plus primary key.
type Reference struct {
	Kind string    `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// Ref builds a Reference for a live entity. Returns nil for nil entities.
func Ref(e Entity) *Reference {
	if e == nil {
		return nil
	}
	return &Reference{Kind: e.EntityKind(), ID: e.EntityID()}
}

// FieldChange records one tracked field transition. Values are serialized
// strings; OldValue is nil for the creation case.
type FieldChange struct {
	Field    string  `json:"field"`
	OldValue *string `json:"old_value"`
	NewValue *string `json:"new_value"`
}

// TrailEntry is one immutable audit record. It is created exactly once by
// the Recorder and never mutated afterwards; retention cleanup is the only
// path that removes entries.
type TrailEntry struct {
	AuditID      uuid.UUID      `json:"audit_id"`
	Actor        *Reference     `json:"actor,omitempty"`
	ActionType   ActionType     `json:"action_type"`
	TargetEntity *Reference     `json:"target_entity,omitempty"`
	Workspace    *Reference     `json:"workspace,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// EntityRef identifies an entity either directly or by a kind/primary-key
// descriptor. The zero value means "no entity". Construct with Direct or
// ByDescriptor and resolve through a Resolver so there is a single lookup
// code path.
type EntityRef struct {
	entity Entity
	kind   string
	id     uuid.UUID
}

// Direct wraps an already-loaded entity.
func Direct(e Entity) EntityRef {
	return EntityRef{entity: e}
}

// ByDescriptor references an entity by kind and primary key for later lookup.
func ByDescriptor(kind string, id uuid.UUID) EntityRef {
	return EntityRef{kind: kind, id: id}
}

// IsZero reports whether the ref points at nothing.
func (r EntityRef) IsZero() bool {
	return r.entity == nil && r.kind == "" && r.id == uuid.Nil
}

// EntityLookup resolves a kind/primary-key pair to a live entity.
// Implementations return ErrNotFound when no such entity exists.
type EntityLookup interface {
	FindEntity(ctx context.Context, kind string, id uuid.UUID) (Entity, error)
}

// Resolver turns EntityRefs into live entities through one code path.
type Resolver struct {
	lookup EntityLookup
}

func NewResolver(lookup EntityLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the referenced entity, or nil for a zero ref. Descriptor
// lookups go through the configured EntityLookup.
func (r *Resolver) Resolve(ctx context.Context, ref EntityRef) (Entity, error) {
	switch {
	case ref.entity != nil:
		return ref.entity, nil
	case ref.kind == "" && ref.id == uuid.Nil:
		return nil, nil
	case ref.kind == "" || ref.id == uuid.Nil:
		return nil, ErrMalformedRef
	}
	if r == nil || r.lookup == nil {
		return nil, ErrNoLookup
	}
	return r.lookup.FindEntity(ctx, ref.kind, ref.id)
}
