package domain

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"fyndora/internal/audit"
)

// MemoryDirectory indexes entities and users by kind and ID. It backs the
// async resolver and the metadata providers in tests and single-process
// mode; production deployments swap in repository-backed lookups.
type MemoryDirectory struct {
	mu       sync.RWMutex
	entities map[string]map[uuid.UUID]audit.Entity
	users    map[uuid.UUID]*User
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		entities: make(map[string]map[uuid.UUID]audit.Entity),
		users:    make(map[uuid.UUID]*User),
	}
}

// Add indexes an entity under its kind and ID. Users are additionally
// indexed for actor lookups.
func (d *MemoryDirectory) Add(e audit.Entity) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byID, ok := d.entities[e.EntityKind()]
	if !ok {
		byID = make(map[uuid.UUID]audit.Entity)
		d.entities[e.EntityKind()] = byID
	}
	byID[e.EntityID()] = e

	if u, ok := e.(*User); ok {
		d.users[u.UserID] = u
	}
}

// FindEntity implements audit.EntityLookup.
func (d *MemoryDirectory) FindEntity(_ context.Context, kind string, id uuid.UUID) (audit.Entity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if e, ok := d.entities[kind][id]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s %s", audit.ErrNotFound, kind, id)
}

// FindActor implements async.ActorLookup.
func (d *MemoryDirectory) FindActor(_ context.Context, id uuid.UUID) (*audit.Reference, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, ok := d.users[id]; ok {
		return &audit.Reference{Kind: KindUser, ID: id}, nil
	}
	return nil, fmt.Errorf("%w: %s %s", audit.ErrNotFound, KindUser, id)
}

// FindUserByUsername scans the user index for a username match.
func (d *MemoryDirectory) FindUserByUsername(username string) (*User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.Username == username {
			return u, true
		}
	}
	return nil, false
}

// User returns the indexed user for an ID, if any.
func (d *MemoryDirectory) User(id uuid.UUID) (*User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	return u, ok
}
