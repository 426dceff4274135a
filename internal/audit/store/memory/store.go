// Package memory is an in-process audit store used by tests and
// single-process development mode.
package memory

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fyndora/internal/audit"
)

type Store struct {
	mu      sync.RWMutex
	entries []audit.TrailEntry
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, entry audit.TrailEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Store) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int) ([]audit.TrailEntry, error) {
	return s.ListFiltered(ctx, audit.Filters{WorkspaceID: &workspaceID, Limit: limit})
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.TrailEntry, error) {
	return s.ListFiltered(ctx, audit.Filters{Limit: limit})
}

// ListFiltered applies all filters in Go. Results are most recent first.
func (s *Store) ListFiltered(_ context.Context, f audit.Filters) ([]audit.TrailEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.TrailEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		if !matches(entry, f) {
			continue
		}
		out = append(out, entry)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) DeleteOlderThan(_ context.Context, action audit.ActionType, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []audit.TrailEntry
	var removed int64
	for _, entry := range s.entries {
		if entry.ActionType == action && entry.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	s.entries = kept
	return removed, nil
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func matches(entry audit.TrailEntry, f audit.Filters) bool {
	if f.ActorID != nil && (entry.Actor == nil || entry.Actor.ID != *f.ActorID) {
		return false
	}
	if f.ActionType != "" && entry.ActionType != f.ActionType {
		return false
	}
	if f.TargetEntityID != nil && (entry.TargetEntity == nil || entry.TargetEntity.ID != *f.TargetEntityID) {
		return false
	}
	if f.TargetEntityKind != "" && (entry.TargetEntity == nil || entry.TargetEntity.Kind != f.TargetEntityKind) {
		return false
	}
	if f.WorkspaceID != nil && (entry.Workspace == nil || entry.Workspace.ID != *f.WorkspaceID) {
		return false
	}
	if f.Since != nil && entry.CreatedAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && entry.CreatedAt.After(*f.Until) {
		return false
	}
	if f.Search != "" {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil || !strings.Contains(strings.ToLower(string(encoded)), strings.ToLower(f.Search)) {
			return false
		}
	}
	return true
}
