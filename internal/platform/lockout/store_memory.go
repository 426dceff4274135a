package lockout

import (
	"context"
	"sync"
	"time"
)

type memoryCounter struct {
	count     int
	expiresAt time.Time
}

// MemoryStore is the single-process fallback used when Redis is not
// configured. Expired counters are dropped lazily on access.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]*memoryCounter)}
}

func (s *MemoryStore) RecordFailure(_ context.Context, identifier string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	c := s.counters[identifier]
	if c == nil || now.After(c.expiresAt) {
		c = &memoryCounter{expiresAt: now.Add(window)}
		s.counters[identifier] = c
	}
	c.count++
	return c.count, nil
}

func (s *MemoryStore) Failures(_ context.Context, identifier string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.counters[identifier]
	if c == nil {
		return 0, nil
	}
	if time.Now().After(c.expiresAt) {
		delete(s.counters, identifier)
		return 0, nil
	}
	return c.count, nil
}

func (s *MemoryStore) Clear(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, identifier)
	return nil
}
