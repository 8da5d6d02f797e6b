package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/storage"
)

func TestTemperatureStore_HourlyTemperature(t *testing.T) {
	store := NewTemperatureStore()
	ctx := context.Background()

	readings := []*domain.TemperatureReading{
		{CommunityID: 12, Timestamp: day.Add(2 * time.Hour), Temperature: 4.5},
		{CommunityID: 12, Timestamp: day, Temperature: 1.5},
		{CommunityID: 12, Timestamp: day.Add(30 * time.Minute), Temperature: 2.5},
		{CommunityID: 7, Timestamp: day, Temperature: -20},
	}
	if err := store.InsertBulk(ctx, readings); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.HourlyTemperature(ctx, 12, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("HourlyTemperature failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 hours, got %d", len(result))
	}
	if result[0].Value != 2.0 {
		t.Errorf("Expected hourly mean 2.0, got %v", result[0].Value)
	}
	if result[1].Value != 4.5 {
		t.Errorf("Expected 4.5, got %v", result[1].Value)
	}
}

func TestTemperatureStore_DuplicateKey(t *testing.T) {
	store := NewTemperatureStore()
	ctx := context.Background()

	readings := []*domain.TemperatureReading{{CommunityID: 12, Timestamp: day, Temperature: 1}}
	if err := store.InsertBulk(ctx, readings); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.InsertBulk(ctx, readings); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// same hour for another community is fine
	other := []*domain.TemperatureReading{{CommunityID: 13, Timestamp: day, Temperature: 1}}
	if err := store.InsertBulk(ctx, other); err != nil {
		t.Errorf("Insert for other community failed: %v", err)
	}
}
