package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/storage"
)

func TestDatasetRunStore_InsertAndGet(t *testing.T) {
	store := NewDatasetRunStore()
	ctx := context.Background()

	run := &domain.DatasetRun{
		RunID:         "run-1",
		CommunityID:   12,
		Variant:       domain.VariantNoTemp,
		Status:        domain.RunStatusReady,
		ForecastStart: day,
		TrainRows:     1080,
		TestRows:      24,
	}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TrainRows != 1080 || got.Status != domain.RunStatusReady {
		t.Errorf("Unexpected run: %+v", got)
	}

	got.TrainRows = 0
	again, _ := store.GetByID(ctx, "run-1")
	if again.TrainRows != 1080 {
		t.Error("Stored run was mutated through returned copy")
	}
}

func TestDatasetRunStore_NotFoundAndDuplicate(t *testing.T) {
	store := NewDatasetRunStore()
	ctx := context.Background()

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	run := &domain.DatasetRun{RunID: "run-1", CommunityID: 12}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, run); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if err := store.Insert(ctx, &domain.DatasetRun{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestDatasetRunStore_GetByCommunityOrdering(t *testing.T) {
	store := NewDatasetRunStore()
	ctx := context.Background()

	runs := []*domain.DatasetRun{
		{RunID: "c", CommunityID: 12, ForecastStart: day.Add(24 * time.Hour), Variant: domain.VariantNoTemp},
		{RunID: "b", CommunityID: 12, ForecastStart: day, Variant: domain.VariantWithTemp},
		{RunID: "a", CommunityID: 12, ForecastStart: day, Variant: domain.VariantNoTemp},
		{RunID: "x", CommunityID: 99, ForecastStart: day, Variant: domain.VariantNoTemp},
	}
	for _, r := range runs {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetByCommunity(ctx, 12)
	if err != nil {
		t.Fatalf("GetByCommunity failed: %v", err)
	}

	want := []string{"a", "b", "c"}
	if len(result) != len(want) {
		t.Fatalf("Expected %d runs, got %d", len(want), len(result))
	}
	for i, id := range want {
		if result[i].RunID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, result[i].RunID)
		}
	}
}
