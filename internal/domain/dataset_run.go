package domain

import (
	"fmt"
	"strings"
	"time"
)

// Variant names the exogenous-input configuration of a dataset run.
type Variant string

const (
	VariantNoTemp   Variant = "no_temp"
	VariantWithTemp Variant = "with_temp"
)

// UsesTemperature reports whether the variant carries temperature features.
func (v Variant) UsesTemperature() bool {
	return v == VariantWithTemp
}

// ParseVariants parses a comma-separated variant list. Empty entries are ignored.
func ParseVariants(raw string) ([]Variant, error) {
	var variants []Variant
	for _, v := range strings.Split(raw, ",") {
		switch v = strings.ToLower(strings.TrimSpace(v)); Variant(v) {
		case VariantNoTemp, VariantWithTemp:
			variants = append(variants, Variant(v))
		case "":
		default:
			return nil, fmt.Errorf("invalid variant %q: must be %s or %s", v, VariantNoTemp, VariantWithTemp)
		}
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("no variant selected")
	}
	return variants, nil
}

// RunStatus is the outcome of a dataset run.
type RunStatus string

const (
	// RunStatusReady means both partitions are usable.
	RunStatusReady RunStatus = "READY"

	// RunStatusNotReady means the forecast day has no test rows yet; retry later.
	RunStatusNotReady RunStatus = "NOT_READY"

	// RunStatusInsufficient means too few complete training rows.
	RunStatusInsufficient RunStatus = "INSUFFICIENT"
)

// RunMode tells whether the forecast day was derived from the clock or given.
type RunMode string

const (
	RunModeProduction RunMode = "PRODUCTION"
	RunModeSimulation RunMode = "SIMULATION"
)

// DatasetRun records one build of a leakage-free dataset.
// Corresponds to dataset_runs table in PostgreSQL.
type DatasetRun struct {
	RunID           string    // deterministic run identifier
	CommunityID     int64     // energy community
	Variant         Variant   // no_temp | with_temp
	Mode            RunMode   // PRODUCTION | SIMULATION
	Status          RunStatus // READY | NOT_READY | INSUFFICIENT
	TrainStart      time.Time // first train hour
	ForecastStart   time.Time // first test hour
	ForecastEnd     time.Time // last test hour (inclusive)
	SpecFingerprint string    // canonical feature configuration
	FillLimit       int       // forward-fill limit in hours
	FeatureCount    int       // number of feature columns
	TrainRows       int       // complete train rows
	TestRows        int       // complete test rows
	TrainDropped    int       // train candidates removed by the completeness mask
	TestDropped     int       // test candidates removed by the completeness mask
	CreatedAt       time.Time // when the run was recorded
}
