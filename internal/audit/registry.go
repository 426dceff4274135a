package audit

import (
	"log/slog"
	"slices"
	"sync"
)

// ModelConfig is the per-entity-kind audit configuration.
type ModelConfig struct {
	Kind          string
	ActionTypes   ActionTypeMap
	TrackedFields []string
}

// KindInfo describes one entity kind known to the host system, used by
// AutoRegister to install default configurations.
type KindInfo struct {
	Kind   string
	Fields []string
}

// Registry holds audit configuration per entity kind. It is constructed once
// at startup and passed to consumers explicitly; registration after startup
// is allowed but last-write-wins without further coordination.
type Registry struct {
	mu      sync.RWMutex
	models  map[string]ModelConfig
	actions map[ActionType]struct{}
	cfg     *Config
	logger  *slog.Logger
}

func NewRegistry(cfg *Config, logger *slog.Logger) *Registry {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Registry{
		models:  make(map[string]ModelConfig),
		actions: make(map[ActionType]struct{}),
		cfg:     cfg,
		logger:  logger,
	}
}

// Register installs or replaces the configuration for an entity kind.
// Sensitive fields are stripped from the tracked list up front so they can
// never reach the change detector. Re-registering a kind replaces its
// configuration entirely.
func (r *Registry) Register(kind string, actions ActionTypeMap, trackedFields []string) {
	fields := make([]string, 0, len(trackedFields))
	for _, f := range trackedFields {
		if r.cfg.IsSensitiveField(f) {
			continue
		}
		fields = append(fields, f)
	}

	r.mu.Lock()
	_, replacing := r.models[kind]
	r.models[kind] = ModelConfig{Kind: kind, ActionTypes: actions, TrackedFields: fields}
	if replacing {
		// Rebuild so labels only the old configuration introduced stop
		// passing KnownAction. Labels shared with other kinds survive.
		r.rebuildActionsLocked()
	} else {
		for _, a := range actions {
			r.actions[a] = struct{}{}
		}
	}
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info("registered audit configuration", "kind", kind, "tracked_fields", len(fields))
	}
}

func (r *Registry) rebuildActionsLocked() {
	r.actions = make(map[ActionType]struct{})
	for _, model := range r.models {
		for _, a := range model.ActionTypes {
			r.actions[a] = struct{}{}
		}
	}
}

// Config returns the configuration for a kind, if registered.
func (r *Registry) Config(kind string) (ModelConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.models[kind]
	return cfg, ok
}

// IsRegistered reports whether a kind has an audit configuration.
func (r *Registry) IsRegistered(kind string) bool {
	_, ok := r.Config(kind)
	return ok
}

// Registered lists all registered kind keys. Order is not guaranteed.
func (r *Registry) Registered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.models))
	for k := range r.models {
		kinds = append(kinds, k)
	}
	return kinds
}

// KnownAction reports whether an action label is acceptable to the Recorder:
// either statically declared or introduced through a registration.
func (r *Registry) KnownAction(a ActionType) bool {
	if isStaticAction(a) {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.actions[a]
	return ok
}

// defaultTrackedFields is the candidate set AutoRegister intersects with a
// kind's actual fields.
var defaultTrackedFields = []string{"title", "name", "status", "description"}

// AutoRegister walks every known kind, applies the auditable predicate, and
// installs a default configuration for each kind that passes and lacks an
// explicit entry. Kinds with no overlap with the default tracked fields have
// no sensible default and are skipped.
func (r *Registry) AutoRegister(kinds []KindInfo, auditable func(KindInfo) bool) {
	for _, info := range kinds {
		if auditable != nil && !auditable(info) {
			continue
		}
		if r.IsRegistered(info.Kind) {
			continue
		}

		var tracked []string
		for _, f := range defaultTrackedFields {
			if slices.Contains(info.Fields, f) {
				tracked = append(tracked, f)
			}
		}
		if len(tracked) == 0 {
			if r.logger != nil {
				r.logger.Debug("skipping auto-registration, no default tracked fields", "kind", info.Kind)
			}
			continue
		}

		actions := DefaultActionTypes(info.Kind)
		if actions == nil {
			continue
		}
		r.Register(info.Kind, actions, tracked)
	}
}
