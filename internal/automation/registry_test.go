package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// mockRepository is an in-memory implementation of Repository for testing.
type mockRepository struct {
	automations map[string]*Automation
	mu          sync.RWMutex
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		automations: make(map[string]*Automation),
	}
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*Automation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.automations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.DeepCopy(), nil
}

func (m *mockRepository) List(_ context.Context) ([]Automation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	automations := make([]Automation, 0, len(m.automations))
	for _, a := range m.automations {
		automations = append(automations, *a.DeepCopy())
	}
	return automations, nil
}

func (m *mockRepository) ListEnabled(_ context.Context) ([]Automation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var automations []Automation
	for _, a := range m.automations {
		if a.Enabled {
			automations = append(automations, *a.DeepCopy())
		}
	}
	return automations, nil
}

func (m *mockRepository) Create(_ context.Context, auto *Automation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.automations[auto.ID]; ok {
		return ErrExists
	}
	m.automations[auto.ID] = auto.DeepCopy()
	return nil
}

func (m *mockRepository) Update(_ context.Context, auto *Automation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.automations[auto.ID]; !ok {
		return ErrNotFound
	}
	m.automations[auto.ID] = auto.DeepCopy()
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.automations[id]; !ok {
		return ErrNotFound
	}
	delete(m.automations, id)
	return nil
}

// testDefinition returns a minimal valid definition driving entity.
func testDefinition(entity string) map[string]any {
	return map[string]any{
		"trigger": []any{
			map[string]any{"platform": "state", "entity_id": "sensor.motion"},
		},
		"action": []any{
			map[string]any{"service": "light.turn_on", "entity_id": entity},
		},
	}
}

func newTestRegistry(t *testing.T) (*Registry, *mockRepository) {
	t.Helper()
	repo := newMockRepository()
	return NewRegistry(repo), repo
}

func TestRegistry_Create(t *testing.T) {
	registry, repo := newTestRegistry(t)
	ctx := context.Background()

	auto := &Automation{
		Alias:      "Hall lights",
		Enabled:    true,
		Definition: testDefinition("light.hall"),
	}
	if err := registry.Create(ctx, auto); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if auto.ID == "" {
		t.Error("Create() did not generate an ID")
	}
	if _, err := repo.GetByID(ctx, auto.ID); err != nil {
		t.Errorf("automation not persisted: %v", err)
	}

	got, err := registry.Get(ctx, auto.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Alias != "Hall lights" {
		t.Errorf("Alias = %q", got.Alias)
	}
}

func TestRegistry_Create_AliasFromDefinition(t *testing.T) {
	registry, _ := newTestRegistry(t)

	def := testDefinition("light.hall")
	def["alias"] = "Embedded alias"
	auto := &Automation{Enabled: true, Definition: def}

	if err := registry.Create(context.Background(), auto); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if auto.Alias != "Embedded alias" {
		t.Errorf("Alias = %q, want fallback from definition", auto.Alias)
	}
}

func TestRegistry_Create_Invalid(t *testing.T) {
	registry, _ := newTestRegistry(t)

	err := registry.Create(context.Background(), &Automation{Alias: "x"})
	if !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("error = %v, want ErrInvalidDefinition", err)
	}
}

func TestRegistry_Get_NotFound(t *testing.T) {
	registry, _ := newTestRegistry(t)

	_, err := registry.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_Get_ReturnsCopy(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	auto := &Automation{Alias: "a", Enabled: true, Definition: testDefinition("light.a")}
	if err := registry.Create(ctx, auto); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first, _ := registry.Get(ctx, auto.ID)
	first.Definition["trigger"] = nil
	first.Alias = "mutated"

	second, _ := registry.Get(ctx, auto.ID)
	if second.Alias != "a" {
		t.Error("cache was mutated through a returned copy")
	}
	if second.Definition["trigger"] == nil {
		t.Error("cached definition was mutated through a returned copy")
	}
}

func TestRegistry_List_Sorted(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, alias := range []string{"zebra", "alpha", "mango"} {
		auto := &Automation{Alias: alias, Enabled: true, Definition: testDefinition("light." + alias)}
		if err := registry.Create(ctx, auto); err != nil {
			t.Fatalf("Create(%s) error = %v", alias, err)
		}
	}

	list, err := registry.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List() returned %d automations, want 3", len(list))
	}
	for i, want := range []string{"alpha", "mango", "zebra"} {
		if list[i].Alias != want {
			t.Errorf("list[%d].Alias = %q, want %q", i, list[i].Alias, want)
		}
	}
}

func TestRegistry_Update(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	auto := &Automation{Alias: "before", Enabled: true, Definition: testDefinition("light.a")}
	if err := registry.Create(ctx, auto); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	auto.Alias = "after"
	if err := registry.Update(ctx, auto); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := registry.Get(ctx, auto.ID)
	if got.Alias != "after" {
		t.Errorf("Alias = %q after update", got.Alias)
	}
}

func TestRegistry_Delete(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	auto := &Automation{Alias: "a", Enabled: true, Definition: testDefinition("light.a")}
	if err := registry.Create(ctx, auto); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := registry.Delete(ctx, auto.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := registry.Get(ctx, auto.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	if err := registry.Delete(ctx, auto.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_RefreshCache(t *testing.T) {
	repo := newMockRepository()
	ctx := context.Background()

	seed := &Automation{ID: "seeded", Alias: "Seeded", Enabled: true, Definition: testDefinition("light.a")}
	if err := repo.Create(ctx, seed); err != nil {
		t.Fatalf("seeding repo: %v", err)
	}

	registry := NewRegistry(repo)
	if registry.Count() != 0 {
		t.Fatal("cache populated before refresh")
	}

	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if registry.Count() != 1 {
		t.Errorf("Count() = %d after refresh, want 1", registry.Count())
	}
}

func TestRegistry_DefinitionSnapshot(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	enabled := &Automation{Alias: "on", Enabled: true, Definition: testDefinition("light.a")}
	disabled := &Automation{Alias: "off", Enabled: false, Definition: testDefinition("light.b")}
	for _, a := range []*Automation{enabled, disabled} {
		if err := registry.Create(ctx, a); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	snapshot := registry.DefinitionSnapshot(ctx)

	if len(snapshot) != 1 {
		t.Fatalf("snapshot has %d entries, want 1 (disabled excluded)", len(snapshot))
	}
	def, ok := snapshot[enabled.ID]
	if !ok {
		t.Fatal("snapshot missing enabled automation")
	}
	if def["alias"] != "on" {
		t.Errorf("snapshot alias = %v, want injected registry alias", def["alias"])
	}

	// Snapshot must be isolated from the cache.
	def["trigger"] = nil
	again := registry.DefinitionSnapshot(ctx)
	if again[enabled.ID]["trigger"] == nil {
		t.Error("cache was mutated through a snapshot")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	auto := &Automation{Alias: "shared", Enabled: true, Definition: testDefinition("light.a")}
	if err := registry.Create(ctx, auto); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = registry.Get(ctx, auto.ID)
		}()
		go func() {
			defer wg.Done()
			_ = registry.DefinitionSnapshot(ctx)
		}()
	}
	wg.Wait()
}
