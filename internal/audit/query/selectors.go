// Package query is the read side of the audit trail: filtered listings for
// the HTTP API and retention cleanup for expired entries.
package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"fyndora/internal/audit"
)

const recentCacheKey = "audit:recent"

// Selectors serves audit trail listings. A Redis client is optional; when
// present, the recent-entries listing is cached with the configured TTL and
// every cache failure falls through to the store.
type Selectors struct {
	store  audit.Store
	cache  *redis.Client
	cfg    *audit.Config
	logger *slog.Logger
}

func NewSelectors(store audit.Store, cache *redis.Client, cfg *audit.Config, logger *slog.Logger) *Selectors {
	if cfg == nil {
		cfg = audit.DefaultConfig()
	}
	return &Selectors{store: store, cache: cache, cfg: cfg, logger: logger}
}

// ForWorkspace lists entries scoped to one workspace, newest first, with
// any additional filters applied.
func (s *Selectors) ForWorkspace(ctx context.Context, workspaceID uuid.UUID, f audit.Filters) ([]audit.TrailEntry, error) {
	f.WorkspaceID = &workspaceID
	return s.store.ListFiltered(ctx, f)
}

// Recent lists the most recent entries across all workspaces, serving from
// cache when possible.
func (s *Selectors) Recent(ctx context.Context, limit int) ([]audit.TrailEntry, error) {
	if cached, ok := s.cachedRecent(ctx, limit); ok {
		return cached, nil
	}

	entries, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.cacheRecent(ctx, entries)
	return entries, nil
}

func (s *Selectors) cachedRecent(ctx context.Context, limit int) ([]audit.TrailEntry, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, err := s.cache.Get(ctx, recentCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.WarnContext(ctx, "audit recent cache read failed", "error", err)
		}
		return nil, false
	}
	var entries []audit.TrailEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		s.logger.WarnContext(ctx, "audit recent cache decode failed", "error", err)
		return nil, false
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, true
}

func (s *Selectors) cacheRecent(ctx context.Context, entries []audit.TrailEntry) {
	if s.cache == nil || len(entries) == 0 {
		return
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, recentCacheKey, payload, s.cfg.RecentCacheTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "audit recent cache write failed", "error", err)
	}
}

// Cleanup removes entries that exceeded their action category's retention
// period. Runs as a maintenance job, never as part of the write pipeline.
type Cleanup struct {
	store    audit.Store
	registry *audit.Registry
	cfg      *audit.Config
	logger   *slog.Logger
	metrics  *audit.Metrics
}

func NewCleanup(store audit.Store, registry *audit.Registry, cfg *audit.Config, logger *slog.Logger, metrics *audit.Metrics) *Cleanup {
	if cfg == nil {
		cfg = audit.DefaultConfig()
	}
	return &Cleanup{store: store, registry: registry, cfg: cfg, logger: logger, metrics: metrics}
}

// PurgeExpired deletes expired entries per action type and returns the total
// removed. A failure on one action type is logged and does not stop the
// others.
func (c *Cleanup) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	var lastErr error
	for _, action := range c.actions() {
		cutoff := now.Add(-c.cfg.RetentionFor(action))
		removed, err := c.store.DeleteOlderThan(ctx, action, cutoff)
		if err != nil {
			c.logger.ErrorContext(ctx, "audit retention cleanup failed", "action_type", action, "error", err)
			lastErr = err
			continue
		}
		total += removed
	}
	c.metrics.AddPurged(total)
	if total > 0 {
		c.logger.InfoContext(ctx, "audit retention cleanup completed", "removed", total)
	}
	return total, lastErr
}

// actions covers the static labels plus everything the registry installed.
func (c *Cleanup) actions() []audit.ActionType {
	seen := make(map[audit.ActionType]struct{})
	var out []audit.ActionType
	for _, a := range audit.KnownActionTypes() {
		seen[a] = struct{}{}
		out = append(out, a)
	}
	if c.registry == nil {
		return out
	}
	for _, kind := range c.registry.Registered() {
		model, ok := c.registry.Config(kind)
		if !ok {
			continue
		}
		for _, a := range model.ActionTypes {
			if _, dup := seen[a]; dup {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}
