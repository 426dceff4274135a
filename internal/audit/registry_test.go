package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterStripsSensitiveFields(t *testing.T) {
	r := NewRegistry(DefaultConfig(), testLogger())
	r.Register("accounts.User", ActionTypeMap{PhaseCreate: "user_created"}, []string{"username", "password_hash", "status"})

	model, ok := r.Config("accounts.User")
	require.True(t, ok)
	assert.Equal(t, []string{"username", "status"}, model.TrackedFields)
}

func TestRegistry_ReRegisterReplaces(t *testing.T) {
	r := NewRegistry(DefaultConfig(), testLogger())
	r.Register("entries.Entry", ActionTypeMap{PhaseCreate: "entry_created"}, []string{"amount"})
	r.Register("entries.Entry", ActionTypeMap{PhaseCreate: "entry_created"}, []string{"status"})

	model, ok := r.Config("entries.Entry")
	require.True(t, ok)
	assert.Equal(t, []string{"status"}, model.TrackedFields)
}

func TestRegistry_ReRegisterRetiresOldActions(t *testing.T) {
	r := NewRegistry(DefaultConfig(), testLogger())
	r.Register("billing.Invoice", ActionTypeMap{PhaseCreate: "invoice_created"}, []string{"status"})
	r.Register("billing.Invoice", ActionTypeMap{PhaseCreate: "invoice_issued"}, []string{"status"})

	assert.True(t, r.KnownAction("invoice_issued"))
	assert.False(t, r.KnownAction("invoice_created"), "labels only the replaced configuration carried are retired")
}

func TestRegistry_ReRegisterKeepsSharedActions(t *testing.T) {
	r := NewRegistry(DefaultConfig(), testLogger())
	r.Register("billing.Invoice", ActionTypeMap{PhaseCreate: "record_created"}, []string{"status"})
	r.Register("billing.Receipt", ActionTypeMap{PhaseCreate: "record_created"}, []string{"status"})
	r.Register("billing.Invoice", ActionTypeMap{PhaseCreate: "invoice_issued"}, []string{"status"})

	assert.True(t, r.KnownAction("record_created"), "labels another kind still declares survive")
}

func TestRegistry_KnownAction(t *testing.T) {
	r := NewRegistry(DefaultConfig(), testLogger())

	assert.True(t, r.KnownAction(ActionLoginSuccess))
	assert.False(t, r.KnownAction("invoice_created"))

	r.Register("billing.Invoice", ActionTypeMap{PhaseCreate: "invoice_created"}, []string{"status"})
	assert.True(t, r.KnownAction("invoice_created"))
}

func TestRegistry_Registered(t *testing.T) {
	r := NewRegistry(DefaultConfig(), testLogger())
	r.Register("teams.Team", ActionTypeMap{PhaseCreate: "team_created"}, []string{"title"})
	r.Register("entries.Entry", ActionTypeMap{PhaseCreate: "entry_created"}, []string{"status"})

	kinds := r.Registered()
	assert.ElementsMatch(t, []string{"teams.Team", "entries.Entry"}, kinds)
	assert.True(t, r.IsRegistered("teams.Team"))
	assert.False(t, r.IsRegistered("unknown.Kind"))
}

func TestAutoRegister_IntersectsDefaultFields(t *testing.T) {
	r := NewRegistry(DefaultConfig(), testLogger())
	r.AutoRegister([]KindInfo{
		{Kind: "invoices.Invoice", Fields: []string{"title", "status", "amount"}},
	}, nil)

	model, ok := r.Config("invoices.Invoice")
	require.True(t, ok)
	assert.Equal(t, []string{"title", "status"}, model.TrackedFields)
	assert.Equal(t, ActionType("invoice_created"), model.ActionTypes[PhaseCreate])
	assert.Equal(t, ActionType("invoice_updated"), model.ActionTypes[PhaseUpdate])
	assert.Equal(t, ActionType("invoice_deleted"), model.ActionTypes[PhaseDelete])
}

func TestAutoRegister_SkipsExplicitAndNoOverlap(t *testing.T) {
	r := NewRegistry(DefaultConfig(), testLogger())
	r.Register("entries.Entry", ActionTypeMap{PhaseCreate: "entry_created"}, []string{"amount"})

	r.AutoRegister([]KindInfo{
		{Kind: "entries.Entry", Fields: []string{"title", "status"}},
		{Kind: "attachments.Attachment", Fields: []string{"file_url", "mime_type"}},
	}, nil)

	model, _ := r.Config("entries.Entry")
	assert.Equal(t, []string{"amount"}, model.TrackedFields, "explicit registration must survive")
	assert.False(t, r.IsRegistered("attachments.Attachment"), "no default field overlap, no registration")
}

func TestAutoRegister_HonorsPredicate(t *testing.T) {
	r := NewRegistry(DefaultConfig(), testLogger())
	r.AutoRegister([]KindInfo{
		{Kind: "sessions.Session", Fields: []string{"status"}},
	}, func(KindInfo) bool { return false })

	assert.False(t, r.IsRegistered("sessions.Session"))
}

func TestDefaultActionTypes(t *testing.T) {
	actions := DefaultActionTypes("workspaces.WorkspaceTeam")
	require.NotNil(t, actions)
	assert.Equal(t, ActionType("workspace_team_created"), actions[PhaseCreate])
	assert.Equal(t, ActionType("workspace_team_updated"), actions[PhaseUpdate])
	assert.Equal(t, ActionType("workspace_team_deleted"), actions[PhaseDelete])
	_, hasStatus := actions[PhaseStatusChange]
	assert.False(t, hasStatus)

	assert.Nil(t, DefaultActionTypes(""))
}
