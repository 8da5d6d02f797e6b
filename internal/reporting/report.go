// Package reporting renders dataset runs and partitions for humans and
// downstream tooling.
package reporting

import "time"

// Report summarizes the dataset runs of one community.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	CommunityID int64

	Summary Summary

	// Runs sorted by (day, variant)
	Runs []RunRow

	// Failed viability checks of runs that are not READY
	Rejections []RejectionRow
}

// Summary contains run counts and the covered day range.
type Summary struct {
	TotalRuns     int
	Ready         int
	NotReady      int
	Insufficient  int
	FirstDay      string // YYYY-MM-DD, empty without runs
	LastDay       string
	MeanTrainRows float64 // over READY runs
	MeanTestRows  float64
}

// RunRow represents one row in the runs table.
type RunRow struct {
	Day          string
	Variant      string
	Mode         string
	Status       string
	FeatureCount int
	TrainRows    int
	TestRows     int
	TrainDropped int
	TestDropped  int
	RunID        string
}

// RejectionRow lists one failed viability criterion.
type RejectionRow struct {
	Day       string
	Variant   string
	Check     string
	Threshold string
	Actual    string
}
