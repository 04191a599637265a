package automation

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides automation management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Automation // Cached automations by ID
	cacheMu sync.RWMutex           // Protects cache
	logger  Logger
}

// NewRegistry creates a new automation registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Automation),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all automations from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	automations, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading automations: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	r.cache = make(map[string]*Automation, len(automations))
	for i := range automations {
		a := automations[i]
		r.cache[a.ID] = a.DeepCopy()
	}

	r.logger.Info("automation cache refreshed", "count", len(automations))
	return nil
}

// Get retrieves an automation by ID.
// The returned automation is a deep copy; callers can safely modify it.
func (r *Registry) Get(_ context.Context, id string) (*Automation, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return nil, ErrNotFound
}

// List retrieves all automations from the cache.
// Returns deep copies sorted by alias then ID for deterministic ordering.
func (r *Registry) List(_ context.Context) ([]Automation, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	automations := make([]Automation, 0, len(r.cache))
	for _, a := range r.cache {
		automations = append(automations, *a.DeepCopy())
	}
	sortAutomations(automations)
	return automations, nil
}

// DefinitionSnapshot returns the enabled automations' definitions keyed
// by ID, with aliases injected so analysis output stays labelled. The
// maps are deep copies; consumers can hold them without locking.
func (r *Registry) DefinitionSnapshot(_ context.Context) map[string]map[string]any {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	snapshot := make(map[string]map[string]any, len(r.cache))
	for id, a := range r.cache {
		if !a.Enabled {
			continue
		}
		def := deepCopyMap(a.Definition)
		if def == nil {
			def = map[string]any{}
		}
		if _, ok := def["alias"]; !ok && a.Alias != "" {
			def["alias"] = a.Alias
		}
		snapshot[id] = def
	}
	return snapshot
}

// sortAutomations sorts by alias then ID, matching the DB query ordering.
func sortAutomations(automations []Automation) {
	sort.Slice(automations, func(i, j int) bool {
		if automations[i].Alias != automations[j].Alias {
			return automations[i].Alias < automations[j].Alias
		}
		return automations[i].ID < automations[j].ID
	})
}

// Create validates, persists, and caches a new automation.
func (r *Registry) Create(ctx context.Context, auto *Automation) error {
	// Generate ID if not provided
	if auto.ID == "" {
		auto.ID = GenerateID()
	}
	// Fall back to the alias embedded in the definition
	if auto.Alias == "" {
		if alias, ok := auto.Definition["alias"].(string); ok {
			auto.Alias = alias
		}
	}

	if err := Validate(auto); err != nil {
		return err
	}

	if err := r.repo.Create(ctx, auto); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[auto.ID] = auto.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("automation created", "id", auto.ID, "alias", auto.Alias)
	return nil
}

// Update validates, persists, and updates the cached automation.
func (r *Registry) Update(ctx context.Context, auto *Automation) error {
	if err := Validate(auto); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, auto); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[auto.ID] = auto.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("automation updated", "id", auto.ID, "alias", auto.Alias)
	return nil
}

// Delete removes an automation from persistence and cache.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("automation deleted", "id", id)
	return nil
}

// Count returns the number of cached automations.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
