package async

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"fyndora/internal/audit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubEntity struct {
	kind string
	id   uuid.UUID
}

func (e *stubEntity) EntityKind() string       { return e.kind }
func (e *stubEntity) EntityID() uuid.UUID      { return e.id }
func (e *stubEntity) Snapshot() audit.Snapshot { return audit.Snapshot{} }

type stubLookup map[uuid.UUID]*stubEntity

func (l stubLookup) FindEntity(_ context.Context, kind string, id uuid.UUID) (audit.Entity, error) {
	if e, ok := l[id]; ok && e.kind == kind {
		return e, nil
	}
	return nil, audit.ErrNotFound
}

type stubActors map[uuid.UUID]struct{}

func (a stubActors) FindActor(_ context.Context, id uuid.UUID) (*audit.Reference, error) {
	if _, ok := a[id]; ok {
		return &audit.Reference{Kind: "accounts.User", ID: id}, nil
	}
	return nil, audit.ErrNotFound
}
