package idhash

import (
	"testing"
	"time"

	"energy-forecast-lab/internal/domain"
)

var forecastStart = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func runID(variant domain.Variant, start time.Time, fingerprint string, fill int) string {
	return ComputeRunID(12, variant, domain.RunModeSimulation, start.Add(-45*24*time.Hour), start, start.Add(23*time.Hour), fingerprint, fill)
}

func TestComputeRunID_Deterministic(t *testing.T) {
	a := runID(domain.VariantNoTemp, forecastStart, "lags=24", 24)
	b := runID(domain.VariantNoTemp, forecastStart, "lags=24", 24)
	if a != b {
		t.Errorf("Same inputs produced different IDs: %s vs %s", a, b)
	}

	vienna := time.FixedZone("CET", 3600)
	c := runID(domain.VariantNoTemp, forecastStart.In(vienna), "lags=24", 24)
	if a != c {
		t.Errorf("Zone of the inputs changed the ID: %s vs %s", a, c)
	}
}

func TestComputeRunID_Distinct(t *testing.T) {
	base := runID(domain.VariantNoTemp, forecastStart, "lags=24", 24)

	tests := []struct {
		name string
		id   string
	}{
		{"variant", runID(domain.VariantWithTemp, forecastStart, "lags=24", 24)},
		{"day", runID(domain.VariantNoTemp, forecastStart.Add(24*time.Hour), "lags=24", 24)},
		{"spec", runID(domain.VariantNoTemp, forecastStart, "lags=48", 24)},
		{"fill limit", runID(domain.VariantNoTemp, forecastStart, "lags=24", 0)},
		{"mode", ComputeRunID(12, domain.VariantNoTemp, domain.RunModeProduction, forecastStart.Add(-45*24*time.Hour), forecastStart, forecastStart.Add(23*time.Hour), "lags=24", 24)},
		{"community", ComputeRunID(13, domain.VariantNoTemp, domain.RunModeSimulation, forecastStart.Add(-45*24*time.Hour), forecastStart, forecastStart.Add(23*time.Hour), "lags=24", 24)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.id == base {
				t.Errorf("Changing %s did not change the ID", tt.name)
			}
		})
	}
}

func TestDecodeRunID(t *testing.T) {
	id := runID(domain.VariantNoTemp, forecastStart, "lags=24", 24)

	digest, err := DecodeRunID(id)
	if err != nil {
		t.Fatalf("DecodeRunID failed: %v", err)
	}
	if len(digest) != 32 {
		t.Errorf("Expected 32-byte digest, got %d", len(digest))
	}

	if _, err := DecodeRunID("0OIl"); err == nil {
		t.Error("Expected error for invalid base58 alphabet")
	}
	if _, err := DecodeRunID("3mJr7AoUXx2Wqd"); err == nil {
		t.Error("Expected error for short digest")
	}
}
