// Package automation provides automation definition storage for AutoView Core.
//
// Automations are stored trigger/condition/action mappings, kept loosely
// typed (map[string]any) so the full configuration vocabulary round-trips
// without loss. The package owns persistence and caching; parsing and
// dependency analysis live in internal/graph and internal/dependency.
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────┐
//	│                Registry (registry.go)                  │
//	│  Thread-safe cache over persisted definitions          │
//	│  ┌──────────────┐    ┌──────────────┐                │
//	│  │    Cache     │───▶│  Repository  │                │
//	│  │ (by ID, deep │    │(repository.go)│               │
//	│  │   copies)    │    │   SQLite     │                │
//	│  └──────────────┘    └──────────────┘                │
//	│        │                                              │
//	│        ▼                                              │
//	│  DefinitionSnapshot() ──▶ dependency analysis input   │
//	└───────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Automation: Stored definition with alias, enabled flag, timestamps
//   - Registry: Thread-safe in-memory cache wrapping Repository
//   - Repository: Persistence interface; SQLiteRepository is the default
//
// # Thread Safety
//
// Registry is safe for concurrent use from multiple goroutines. All reads
// return deep copies, so callers can modify results without locking.
//
// # Usage
//
//	repo := automation.NewSQLiteRepository(db)
//	registry := automation.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	defs := registry.DefinitionSnapshot(ctx)
package automation
