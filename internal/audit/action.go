package audit

import (
	"errors"
	"strings"
)

// Sentinel errors shared across the pipeline.
var (
	// ErrNotFound is returned by lookups when an entity or actor does not exist.
	ErrNotFound = errors.New("audit: not found")
	// ErrMalformedRef is returned when a descriptor carries only half a key.
	ErrMalformedRef = errors.New("audit: malformed entity reference")
	// ErrNoLookup is returned when descriptor resolution is attempted without
	// a configured EntityLookup.
	ErrNoLookup = errors.New("audit: no entity lookup configured")
	// ErrUnknownAction is returned when a caller passes an action type label
	// that was never declared or registered.
	ErrUnknownAction = errors.New("audit: unknown action type")
)

// ActionType labels what happened in a trail entry.
type ActionType string

// Phase is an entity lifecycle phase an action type can be bound to.
type Phase string

const (
	PhaseCreate       Phase = "created"
	PhaseUpdate       Phase = "updated"
	PhaseDelete       Phase = "deleted"
	PhaseStatusChange Phase = "status_changed"
)

// ActionTypeMap binds lifecycle phases to action type labels for one entity
// kind. PhaseStatusChange is optional; kinds without it fall back to the
// generic update label.
type ActionTypeMap map[Phase]ActionType

// Authentication and security actions.
const (
	ActionLoginSuccess        ActionType = "login_success"
	ActionLoginFailed         ActionType = "login_failed"
	ActionLogout              ActionType = "logout"
	ActionPasswordChanged     ActionType = "password_changed"
	ActionAccessDenied        ActionType = "access_denied"
	ActionUnauthorizedAttempt ActionType = "unauthorized_access_attempt"
)

// Entity lifecycle actions.
const (
	ActionOrganizationCreated       ActionType = "organization_created"
	ActionOrganizationUpdated       ActionType = "organization_updated"
	ActionOrganizationDeleted       ActionType = "organization_deleted"
	ActionOrganizationStatusChanged ActionType = "organization_status_changed"

	ActionWorkspaceCreated       ActionType = "workspace_created"
	ActionWorkspaceUpdated       ActionType = "workspace_updated"
	ActionWorkspaceDeleted       ActionType = "workspace_deleted"
	ActionWorkspaceStatusChanged ActionType = "workspace_status_changed"

	ActionTeamCreated ActionType = "team_created"
	ActionTeamUpdated ActionType = "team_updated"
	ActionTeamDeleted ActionType = "team_deleted"

	ActionEntryCreated       ActionType = "entry_created"
	ActionEntryUpdated       ActionType = "entry_updated"
	ActionEntryDeleted       ActionType = "entry_deleted"
	ActionEntryStatusChanged ActionType = "entry_status_changed"

	ActionRemittanceCreated       ActionType = "remittance_created"
	ActionRemittanceUpdated       ActionType = "remittance_updated"
	ActionRemittanceDeleted       ActionType = "remittance_deleted"
	ActionRemittanceStatusChanged ActionType = "remittance_status_changed"

	ActionUserCreated ActionType = "user_created"
	ActionUserUpdated ActionType = "user_profile_updated"
	ActionUserDeleted ActionType = "user_deleted"
)

// Category groups action types for retention policy purposes.
type Category string

const (
	CategoryAuthentication Category = "authentication"
	CategorySecurity       Category = "security"
	CategoryEntity         Category = "entity"
)

var actionCategories = map[ActionType]Category{
	ActionLoginSuccess:    CategoryAuthentication,
	ActionLogout:          CategoryAuthentication,
	ActionPasswordChanged: CategoryAuthentication,

	ActionLoginFailed:         CategorySecurity,
	ActionAccessDenied:        CategorySecurity,
	ActionUnauthorizedAttempt: CategorySecurity,
}

// Category returns the retention category for the action. Entity lifecycle
// actions, including registry-synthesized ones, fall under CategoryEntity.
func (a ActionType) Category() Category {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryEntity
}

var staticActions = func() map[ActionType]struct{} {
	all := []ActionType{
		ActionLoginSuccess, ActionLoginFailed, ActionLogout,
		ActionPasswordChanged, ActionAccessDenied, ActionUnauthorizedAttempt,
		ActionOrganizationCreated, ActionOrganizationUpdated, ActionOrganizationDeleted, ActionOrganizationStatusChanged,
		ActionWorkspaceCreated, ActionWorkspaceUpdated, ActionWorkspaceDeleted, ActionWorkspaceStatusChanged,
		ActionTeamCreated, ActionTeamUpdated, ActionTeamDeleted,
		ActionEntryCreated, ActionEntryUpdated, ActionEntryDeleted, ActionEntryStatusChanged,
		ActionRemittanceCreated, ActionRemittanceUpdated, ActionRemittanceDeleted, ActionRemittanceStatusChanged,
		ActionUserCreated, ActionUserUpdated, ActionUserDeleted,
	}
	set := make(map[ActionType]struct{}, len(all))
	for _, a := range all {
		set[a] = struct{}{}
	}
	return set
}()

// KnownActionTypes returns every statically declared action type. Custom
// actions installed through a Registry are tracked by that registry instead.
func KnownActionTypes() []ActionType {
	out := make([]ActionType, 0, len(staticActions))
	for a := range staticActions {
		out = append(out, a)
	}
	return out
}

func isStaticAction(a ActionType) bool {
	_, ok := staticActions[a]
	return ok
}

// DefaultActionTypes synthesizes <kind>_created/updated/deleted labels for a
// kind key such as "workspaces.Workspace". The label base is the type name
// after the last dot, lowered to snake case.
func DefaultActionTypes(kind string) ActionTypeMap {
	base := kindBaseName(kind)
	if base == "" {
		return nil
	}
	return ActionTypeMap{
		PhaseCreate: ActionType(base + "_created"),
		PhaseUpdate: ActionType(base + "_updated"),
		PhaseDelete: ActionType(base + "_deleted"),
	}
}

func kindBaseName(kind string) string {
	name := kind
	if i := strings.LastIndexByte(kind, '.'); i >= 0 {
		name = kind[i+1:]
	}
	if name == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
