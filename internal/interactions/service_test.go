package interactions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/israrulhaq-IFL/task-assignment-system/internal/cache"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/store"
	"github.com/israrulhaq-IFL/task-assignment-system/pkg/models"
)

func openSeededStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.SeedDemo(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return st
}

// failCache always errors, standing in for an unreachable Redis.
type failCache struct{}

func (failCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("cache down")
}
func (failCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("cache down")
}
func (failCache) Close() error { return nil }

func TestLogThenGet_cacheHit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openSeededStore(t)
	svc := NewService(st, cache.NewMemory(), nil)

	if _, err := svc.Log(ctx, models.Interaction{UserID: 3, TaskID: 1, Type: models.InteractionExpand}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	second, err := svc.Log(ctx, models.Interaction{UserID: 3, TaskID: 1, Type: models.InteractionStatusChange, Detail: "pending -> in progress"})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	// The cache holds only the most recently logged interaction; each Log
	// overwrites the prior entry.
	got, err := svc.Get(ctx, 3, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected single cached interaction, got %+v", got)
	}
	if got[0].InteractionID != second.InteractionID || got[0].Detail != "pending -> in progress" {
		t.Fatalf("cached entry mismatch: %+v", got)
	}
}

func TestGet_missFallsBackToTaskLog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openSeededStore(t)
	svc := NewService(st, cache.NewMemory(), nil)

	if _, err := svc.Log(ctx, models.Interaction{UserID: 3, TaskID: 1, Type: models.InteractionExpand}); err != nil {
		t.Fatal(err)
	}

	// User 4 has no interactions and no cache entry; the fallback surfaces
	// the task's full history.
	got, err := svc.Get(ctx, 4, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 1 || got[0].UserID != 3 {
		t.Fatalf("fallback list: %+v", got)
	}
}

func TestCacheFailureDegrades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openSeededStore(t)
	svc := NewService(st, failCache{}, nil)

	// Logging still succeeds when the cache is down.
	if _, err := svc.Log(ctx, models.Interaction{UserID: 3, TaskID: 1, Type: models.InteractionExpand}); err != nil {
		t.Fatalf("Log with failing cache: %v", err)
	}

	got, err := svc.Get(ctx, 3, 1)
	if err != nil {
		t.Fatalf("Get with failing cache: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected store fallback, got %+v", got)
	}
}

func TestAttachCached(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openSeededStore(t)
	svc := NewService(st, cache.NewMemory(), nil)

	if _, err := svc.Log(ctx, models.Interaction{UserID: 3, TaskID: 1, Type: models.InteractionExpand}); err != nil {
		t.Fatal(err)
	}
	in, err := svc.Log(ctx, models.Interaction{UserID: 3, TaskID: 1, Type: models.InteractionHide})
	if err != nil {
		t.Fatal(err)
	}

	views := []models.TaskView{
		{Task: models.Task{TaskID: 1}, Interactions: []models.Interaction{}},
		{Task: models.Task{TaskID: 2}, Interactions: []models.Interaction{}},
	}
	svc.AttachCached(ctx, 3, views)

	// Only the most recently logged interaction is attached.
	if len(views[0].Interactions) != 1 || views[0].Interactions[0].InteractionID != in.InteractionID {
		t.Fatalf("view 0 interactions: %+v", views[0].Interactions)
	}
	if len(views[1].Interactions) != 0 {
		t.Fatalf("view 1 should be untouched: %+v", views[1].Interactions)
	}

	// A failing cache leaves the store-joined interactions in place.
	broken := NewService(st, failCache{}, nil)
	pre := []models.TaskView{{Task: models.Task{TaskID: 1}, Interactions: []models.Interaction{{InteractionID: 99}}}}
	broken.AttachCached(ctx, 3, pre)
	if len(pre[0].Interactions) != 1 || pre[0].Interactions[0].InteractionID != 99 {
		t.Fatalf("degraded attach should keep joined interactions: %+v", pre[0].Interactions)
	}
}
