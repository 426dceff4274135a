package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubActorProvider struct {
	meta map[string]any
	err  error
}

func (p *stubActorProvider) ActorMetadata(context.Context, *Reference) (map[string]any, error) {
	return p.meta, p.err
}

type stubEntityProvider struct {
	meta map[string]any
	err  error
}

func (p *stubEntityProvider) EntityMetadata(context.Context, Entity) (map[string]any, error) {
	return p.meta, p.err
}

func TestMetadataBuilder_AlwaysMarksAutomaticLogging(t *testing.T) {
	b := NewMetadataBuilder(DefaultConfig(), nil, nil, testLogger())

	metadata := b.Build(context.Background(), nil, BuildInput{})
	assert.Equal(t, true, metadata["automatic_logging"])
	_, hasChanges := metadata["changed_fields"]
	assert.False(t, hasChanges)
}

func TestMetadataBuilder_IncludesChangesAndOperation(t *testing.T) {
	b := NewMetadataBuilder(DefaultConfig(), nil, nil, testLogger())
	newVal := "approved"

	metadata := b.Build(context.Background(), nil, BuildInput{
		Changes:       []FieldChange{{Field: "status", NewValue: &newVal}},
		OperationType: "update",
	})

	assert.Equal(t, "update", metadata["operation_type"])
	changes, ok := metadata["changed_fields"].([]FieldChange)
	require.True(t, ok)
	require.Len(t, changes, 1)
	assert.Equal(t, "status", changes[0].Field)
}

func TestMetadataBuilder_ProviderFieldsMerged(t *testing.T) {
	actors := &stubActorProvider{meta: map[string]any{"actor_role": "admin"}}
	entities := &stubEntityProvider{meta: map[string]any{"entity_name": "Lunch"}}
	b := NewMetadataBuilder(DefaultConfig(), actors, entities, testLogger())

	actor := &Reference{Kind: "accounts.User", ID: uuid.New()}
	entity := &testEntity{kind: "entries.Entry", id: uuid.New()}
	metadata := b.Build(context.Background(), entity, BuildInput{Actor: actor})

	assert.Equal(t, "admin", metadata["actor_role"])
	assert.Equal(t, "Lunch", metadata["entity_name"])
}

func TestMetadataBuilder_ProviderFailureOmitsFields(t *testing.T) {
	actors := &stubActorProvider{err: errors.New("directory down")}
	entities := &stubEntityProvider{err: errors.New("no such entity")}
	b := NewMetadataBuilder(DefaultConfig(), actors, entities, testLogger())

	actor := &Reference{Kind: "accounts.User", ID: uuid.New()}
	entity := &testEntity{kind: "entries.Entry", id: uuid.New()}
	metadata := b.Build(context.Background(), entity, BuildInput{Actor: actor, OperationType: "create"})

	assert.Equal(t, "create", metadata["operation_type"])
	assert.NotContains(t, metadata, "actor_role")
	assert.NotContains(t, metadata, "entity_name")
}

func TestMetadataBuilder_ExtrasOverrideComputed(t *testing.T) {
	actors := &stubActorProvider{meta: map[string]any{"actor_role": "admin"}}
	b := NewMetadataBuilder(DefaultConfig(), actors, nil, testLogger())

	metadata := b.Build(context.Background(), nil, BuildInput{
		Actor:         &Reference{Kind: "accounts.User", ID: uuid.New()},
		OperationType: "update",
		Extra: map[string]any{
			"actor_role":     "impersonated",
			"operation_type": "bulk_update",
		},
	})

	assert.Equal(t, "impersonated", metadata["actor_role"])
	assert.Equal(t, "bulk_update", metadata["operation_type"])
}
