package domain

import (
	"context"
	"fmt"

	"fyndora/internal/audit"
)

// Named is implemented by entities that carry a human-readable label.
type Named interface {
	DisplayName() string
}

// ActorProvider enriches trail metadata with the acting user's profile.
type ActorProvider struct {
	directory *MemoryDirectory
}

func NewActorProvider(directory *MemoryDirectory) *ActorProvider {
	return &ActorProvider{directory: directory}
}

func (p *ActorProvider) ActorMetadata(_ context.Context, actor *audit.Reference) (map[string]any, error) {
	if actor == nil {
		return nil, nil
	}
	u, ok := p.directory.User(actor.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", audit.ErrNotFound, actor.Kind, actor.ID)
	}
	meta := map[string]any{
		"actor_username":    u.Username,
		"actor_role":        u.Role,
		"actor_permissions": permissionsSummary(u.Role),
	}
	if u.SessionID != "" {
		meta["actor_session_id"] = u.SessionID
	}
	return meta, nil
}

// permissionsSummary collapses a role into the coarse capability label stored
// with each entry, so the trail stays readable after role definitions change.
func permissionsSummary(role string) string {
	switch role {
	case "admin", "org_admin":
		return "full_access"
	case "workspace_admin", "manager":
		return "workspace_management"
	case "member", "submitter":
		return "submit_and_view"
	default:
		return "view_only"
	}
}

// EntityProvider enriches trail metadata with the target's kind, ID, and
// display name.
type EntityProvider struct{}

func NewEntityProvider() *EntityProvider {
	return &EntityProvider{}
}

func (p *EntityProvider) EntityMetadata(_ context.Context, entity audit.Entity) (map[string]any, error) {
	if entity == nil {
		return nil, nil
	}
	meta := map[string]any{
		"entity_kind": entity.EntityKind(),
		"entity_id":   entity.EntityID().String(),
	}
	if named, ok := entity.(Named); ok && named.DisplayName() != "" {
		meta["entity_name"] = named.DisplayName()
	}
	return meta, nil
}
