// Package domain holds the business entities the audit pipeline observes.
// Their CRUD services live elsewhere; the pipeline only needs stable kind
// keys, snapshots, and lookups.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fyndora/internal/audit"
)

// Stable entity kind keys. These are the registry keys and the Kind half of
// every persisted reference.
const (
	KindOrganization = "organizations.Organization"
	KindWorkspace    = "workspaces.Workspace"
	KindTeam         = "teams.Team"
	KindEntry        = "entries.Entry"
	KindRemittance   = "remittance.Remittance"
	KindUser         = "accounts.User"
)

type Organization struct {
	OrganizationID uuid.UUID
	Title          string
	Description    string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

func (o *Organization) EntityKind() string  { return KindOrganization }
func (o *Organization) EntityID() uuid.UUID { return o.OrganizationID }
func (o *Organization) DisplayName() string { return o.Title }

func (o *Organization) Snapshot() audit.Snapshot {
	return audit.Snapshot{
		"title":       o.Title,
		"description": o.Description,
		"status":      o.Status,
		"deleted_at":  o.DeletedAt,
	}
}

type Workspace struct {
	WorkspaceID    uuid.UUID
	OrganizationID uuid.UUID
	Title          string
	Description    string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

func (w *Workspace) EntityKind() string  { return KindWorkspace }
func (w *Workspace) EntityID() uuid.UUID { return w.WorkspaceID }
func (w *Workspace) DisplayName() string { return w.Title }

// WorkspaceRef scopes a workspace's own trail entries to itself.
func (w *Workspace) WorkspaceRef() *audit.Reference {
	return &audit.Reference{Kind: KindWorkspace, ID: w.WorkspaceID}
}

func (w *Workspace) Snapshot() audit.Snapshot {
	return audit.Snapshot{
		"title":       w.Title,
		"description": w.Description,
		"status":      w.Status,
		"deleted_at":  w.DeletedAt,
	}
}

type Team struct {
	TeamID      uuid.UUID
	WorkspaceID uuid.UUID
	Title       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

func (t *Team) EntityKind() string  { return KindTeam }
func (t *Team) EntityID() uuid.UUID { return t.TeamID }
func (t *Team) DisplayName() string { return t.Title }

func (t *Team) WorkspaceRef() *audit.Reference {
	return &audit.Reference{Kind: KindWorkspace, ID: t.WorkspaceID}
}

func (t *Team) Snapshot() audit.Snapshot {
	return audit.Snapshot{
		"title":       t.Title,
		"description": t.Description,
		"deleted_at":  t.DeletedAt,
	}
}

// Entry is one tracked expense or income item.
type Entry struct {
	EntryID     uuid.UUID
	WorkspaceID uuid.UUID
	Type        string
	Amount      decimal.Decimal
	Status      string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

func (e *Entry) EntityKind() string  { return KindEntry }
func (e *Entry) EntityID() uuid.UUID { return e.EntryID }
func (e *Entry) DisplayName() string { return e.Description }

func (e *Entry) WorkspaceRef() *audit.Reference {
	return &audit.Reference{Kind: KindWorkspace, ID: e.WorkspaceID}
}

func (e *Entry) Snapshot() audit.Snapshot {
	return audit.Snapshot{
		"type":        e.Type,
		"amount":      e.Amount,
		"status":      e.Status,
		"description": e.Description,
		"deleted_at":  e.DeletedAt,
	}
}

type Remittance struct {
	RemittanceID uuid.UUID
	WorkspaceID  uuid.UUID
	Amount       decimal.Decimal
	Status       string
	DueDate      *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

func (r *Remittance) EntityKind() string  { return KindRemittance }
func (r *Remittance) EntityID() uuid.UUID { return r.RemittanceID }
func (r *Remittance) DisplayName() string { return r.Status }

func (r *Remittance) WorkspaceRef() *audit.Reference {
	return &audit.Reference{Kind: KindWorkspace, ID: r.WorkspaceID}
}

func (r *Remittance) Snapshot() audit.Snapshot {
	return audit.Snapshot{
		"amount":     r.Amount,
		"status":     r.Status,
		"due_date":   r.DueDate,
		"deleted_at": r.DeletedAt,
	}
}

type User struct {
	UserID       uuid.UUID
	Email        string
	Username     string
	Role         string
	Status       string
	IsActive     bool
	PasswordHash string
	SessionID    string
	CreatedAt    time.Time
}

func (u *User) EntityKind() string  { return KindUser }
func (u *User) EntityID() uuid.UUID { return u.UserID }
func (u *User) DisplayName() string { return u.Username }

// Snapshot deliberately includes password_hash: the sensitive-field policy
// must keep it out of every diff, and tests rely on that.
func (u *User) Snapshot() audit.Snapshot {
	return audit.Snapshot{
		"email":         u.Email,
		"username":      u.Username,
		"status":        u.Status,
		"is_active":     u.IsActive,
		"password_hash": u.PasswordHash,
	}
}

// Kinds enumerates every known entity kind with its snapshot fields, the
// input the registry's auto-registration pass walks.
func Kinds() []audit.KindInfo {
	return []audit.KindInfo{
		{Kind: KindOrganization, Fields: []string{"title", "description", "status", "deleted_at"}},
		{Kind: KindWorkspace, Fields: []string{"title", "description", "status", "deleted_at"}},
		{Kind: KindTeam, Fields: []string{"title", "description", "deleted_at"}},
		{Kind: KindEntry, Fields: []string{"type", "amount", "status", "description", "deleted_at"}},
		{Kind: KindRemittance, Fields: []string{"amount", "status", "due_date", "deleted_at"}},
		{Kind: KindUser, Fields: []string{"email", "username", "status", "is_active", "password_hash"}},
	}
}

// Auditable is the predicate auto-registration applies; every business kind
// listed here is audited.
func Auditable(info audit.KindInfo) bool {
	switch info.Kind {
	case KindOrganization, KindWorkspace, KindTeam, KindEntry, KindRemittance, KindUser:
		return true
	}
	return false
}

// RegisterDefaults installs the production audit configuration for every
// business kind: explicit tracked fields and action types first, then the
// auto-registration sweep for anything left over.
func RegisterDefaults(registry *audit.Registry) {
	registry.Register(KindOrganization, audit.ActionTypeMap{
		audit.PhaseCreate:       audit.ActionOrganizationCreated,
		audit.PhaseUpdate:       audit.ActionOrganizationUpdated,
		audit.PhaseDelete:       audit.ActionOrganizationDeleted,
		audit.PhaseStatusChange: audit.ActionOrganizationStatusChanged,
	}, []string{"title", "status", "description"})

	registry.Register(KindWorkspace, audit.ActionTypeMap{
		audit.PhaseCreate:       audit.ActionWorkspaceCreated,
		audit.PhaseUpdate:       audit.ActionWorkspaceUpdated,
		audit.PhaseDelete:       audit.ActionWorkspaceDeleted,
		audit.PhaseStatusChange: audit.ActionWorkspaceStatusChanged,
	}, []string{"title", "description", "status"})

	registry.Register(KindTeam, audit.ActionTypeMap{
		audit.PhaseCreate: audit.ActionTeamCreated,
		audit.PhaseUpdate: audit.ActionTeamUpdated,
		audit.PhaseDelete: audit.ActionTeamDeleted,
	}, []string{"title", "description"})

	registry.Register(KindEntry, audit.ActionTypeMap{
		audit.PhaseCreate:       audit.ActionEntryCreated,
		audit.PhaseUpdate:       audit.ActionEntryUpdated,
		audit.PhaseDelete:       audit.ActionEntryDeleted,
		audit.PhaseStatusChange: audit.ActionEntryStatusChanged,
	}, []string{"type", "amount", "status"})

	registry.Register(KindRemittance, audit.ActionTypeMap{
		audit.PhaseCreate:       audit.ActionRemittanceCreated,
		audit.PhaseUpdate:       audit.ActionRemittanceUpdated,
		audit.PhaseDelete:       audit.ActionRemittanceDeleted,
		audit.PhaseStatusChange: audit.ActionRemittanceStatusChanged,
	}, []string{"amount", "status"})

	registry.Register(KindUser, audit.ActionTypeMap{
		audit.PhaseCreate: audit.ActionUserCreated,
		audit.PhaseUpdate: audit.ActionUserUpdated,
		audit.PhaseDelete: audit.ActionUserDeleted,
	}, []string{"email", "username", "status", "is_active"})

	registry.AutoRegister(Kinds(), Auditable)
}
