package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore collects appended entries and can be told to fail.
type fakeStore struct {
	mu      sync.Mutex
	entries []TrailEntry
	failErr error
}

func (s *fakeStore) Append(_ context.Context, entry TrailEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeStore) ListByWorkspace(context.Context, uuid.UUID, int) ([]TrailEntry, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) ListRecent(context.Context, int) ([]TrailEntry, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) ListFiltered(context.Context, Filters) ([]TrailEntry, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) DeleteOlderThan(context.Context, ActionType, time.Time) (int64, error) {
	return 0, errors.New("not implemented")
}

func (s *fakeStore) all() []TrailEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TrailEntry(nil), s.entries...)
}

func (s *fakeStore) last() TrailEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[len(s.entries)-1]
}

// testEntity is a minimal workspace-scoped auditable object.
type testEntity struct {
	kind      string
	id        uuid.UUID
	workspace *Reference
	fields    Snapshot
}

func (e *testEntity) EntityKind() string  { return e.kind }
func (e *testEntity) EntityID() uuid.UUID { return e.id }
func (e *testEntity) Snapshot() Snapshot  { return e.fields }

func (e *testEntity) WorkspaceRef() *Reference { return e.workspace }
