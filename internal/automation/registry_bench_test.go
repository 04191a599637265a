package automation

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// setupBenchRegistry creates a registry pre-populated with n automations.
func setupBenchRegistry(b *testing.B, n int) *Registry {
	b.Helper()
	repo := newMockRepository()
	ctx := context.Background()

	for i := 0; i < n; i++ {
		auto := &Automation{
			ID:         fmt.Sprintf("auto-%04d", i),
			Alias:      fmt.Sprintf("Automation %d", i),
			Enabled:    true,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
			Definition: testDefinition(fmt.Sprintf("light.bench_%04d", i)),
		}
		if err := repo.Create(ctx, auto); err != nil {
			b.Fatalf("creating automation %d: %v", i, err)
		}
	}

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(ctx); err != nil {
		b.Fatalf("refreshing cache: %v", err)
	}
	return reg
}

func BenchmarkRegistryGet(b *testing.B) {
	reg := setupBenchRegistry(b, 50)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.Get(ctx, "auto-0025") //nolint:errcheck // benchmark
	}
}

func BenchmarkRegistryDefinitionSnapshot(b *testing.B) {
	reg := setupBenchRegistry(b, 50)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.DefinitionSnapshot(ctx)
	}
}

func BenchmarkRegistryRefreshCache(b *testing.B) {
	repo := newMockRepository()
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		auto := &Automation{
			ID:         fmt.Sprintf("auto-%04d", i),
			Alias:      fmt.Sprintf("Automation %d", i),
			Enabled:    true,
			Definition: testDefinition(fmt.Sprintf("light.bench_%04d", i)),
		}
		repo.Create(ctx, auto) //nolint:errcheck // setup
	}

	reg := NewRegistry(repo)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.RefreshCache(ctx) //nolint:errcheck // benchmark
	}
}
