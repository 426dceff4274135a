package domain

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fyndora/internal/audit"
	"fyndora/internal/platform/secrets"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEntrySnapshotCarriesSoftDeleteMarker(t *testing.T) {
	entry := &Entry{
		EntryID:     uuid.New(),
		WorkspaceID: uuid.New(),
		Type:        "expense",
		Amount:      decimal.RequireFromString("10.50"),
		Status:      "pending",
	}

	snap := entry.Snapshot()
	assert.True(t, snap.Has("deleted_at"))
	assert.Nil(t, snap.Field("deleted_at"))

	now := time.Now()
	entry.DeletedAt = &now
	assert.NotNil(t, entry.Snapshot().Field("deleted_at"))
}

func TestWorkspaceScoping(t *testing.T) {
	workspaceID := uuid.New()
	scoped := []audit.WorkspaceScoped{
		&Workspace{WorkspaceID: workspaceID},
		&Team{WorkspaceID: workspaceID},
		&Entry{WorkspaceID: workspaceID},
		&Remittance{WorkspaceID: workspaceID},
	}
	for _, s := range scoped {
		ref := s.WorkspaceRef()
		require.NotNil(t, ref)
		assert.Equal(t, KindWorkspace, ref.Kind)
		assert.Equal(t, workspaceID, ref.ID)
	}
}

func TestRegisterDefaults(t *testing.T) {
	registry := audit.NewRegistry(audit.DefaultConfig(), testLogger())
	RegisterDefaults(registry)

	for _, info := range Kinds() {
		assert.True(t, registry.IsRegistered(info.Kind), "kind %s not registered", info.Kind)
	}

	model, ok := registry.Config(KindEntry)
	require.True(t, ok)
	assert.Equal(t, audit.ActionEntryStatusChanged, model.ActionTypes[audit.PhaseStatusChange])
	assert.Equal(t, []string{"type", "amount", "status"}, model.TrackedFields)

	// The user registration must never track the password hash.
	model, ok = registry.Config(KindUser)
	require.True(t, ok)
	assert.NotContains(t, model.TrackedFields, "password_hash")
}

func TestMemoryDirectory_Lookups(t *testing.T) {
	dir := NewMemoryDirectory()
	entry := &Entry{EntryID: uuid.New(), WorkspaceID: uuid.New(), Status: "pending"}
	user := &User{UserID: uuid.New(), Username: "alice", Role: "admin"}
	dir.Add(entry)
	dir.Add(user)

	got, err := dir.FindEntity(context.Background(), KindEntry, entry.EntryID)
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	_, err = dir.FindEntity(context.Background(), KindEntry, uuid.New())
	assert.ErrorIs(t, err, audit.ErrNotFound)

	actor, err := dir.FindActor(context.Background(), user.UserID)
	require.NoError(t, err)
	assert.Equal(t, KindUser, actor.Kind)
	assert.Equal(t, user.UserID, actor.ID)

	_, err = dir.FindActor(context.Background(), uuid.New())
	assert.ErrorIs(t, err, audit.ErrNotFound)

	found, ok := dir.FindUserByUsername("alice")
	require.True(t, ok)
	assert.Equal(t, user.UserID, found.UserID)

	_, ok = dir.FindUserByUsername("bob")
	assert.False(t, ok)
}

func TestActorProvider(t *testing.T) {
	dir := NewMemoryDirectory()
	user := &User{UserID: uuid.New(), Username: "alice", Role: "admin", SessionID: "sess-9"}
	dir.Add(user)
	provider := NewActorProvider(dir)

	meta, err := provider.ActorMetadata(context.Background(), &audit.Reference{Kind: KindUser, ID: user.UserID})
	require.NoError(t, err)
	assert.Equal(t, "alice", meta["actor_username"])
	assert.Equal(t, "admin", meta["actor_role"])
	assert.Equal(t, "full_access", meta["actor_permissions"])
	assert.Equal(t, "sess-9", meta["actor_session_id"])

	_, err = provider.ActorMetadata(context.Background(), &audit.Reference{Kind: KindUser, ID: uuid.New()})
	assert.ErrorIs(t, err, audit.ErrNotFound)

	meta, err = provider.ActorMetadata(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestPermissionsSummary(t *testing.T) {
	assert.Equal(t, "full_access", permissionsSummary("admin"))
	assert.Equal(t, "workspace_management", permissionsSummary("workspace_admin"))
	assert.Equal(t, "submit_and_view", permissionsSummary("member"))
	assert.Equal(t, "view_only", permissionsSummary("auditor"))
	assert.Equal(t, "view_only", permissionsSummary(""))
}

func TestEntityProvider(t *testing.T) {
	provider := NewEntityProvider()
	workspace := &Workspace{WorkspaceID: uuid.New(), Title: "Marketing"}

	meta, err := provider.EntityMetadata(context.Background(), workspace)
	require.NoError(t, err)
	assert.Equal(t, KindWorkspace, meta["entity_kind"])
	assert.Equal(t, workspace.WorkspaceID.String(), meta["entity_id"])
	assert.Equal(t, "Marketing", meta["entity_name"])
}

func TestAccounts_Authenticate(t *testing.T) {
	hash, err := secrets.Hash("s3cret")
	require.NoError(t, err)

	dir := NewMemoryDirectory()
	dir.Add(&User{UserID: uuid.New(), Username: "alice", IsActive: true, PasswordHash: hash})
	dir.Add(&User{UserID: uuid.New(), Username: "mallory", IsActive: false, PasswordHash: hash})
	accounts := NewAccounts(dir)

	user, err := accounts.Authenticate(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = accounts.Authenticate(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = accounts.Authenticate(context.Background(), "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = accounts.Authenticate(context.Background(), "mallory", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "inactive users cannot log in")
}
