package dataset

import (
	"time"

	"energy-forecast-lab/internal/features"
)

// Partition is an index-aligned (features, target) pair. Every row is complete.
type Partition struct {
	Features *features.Matrix
	Target   []float64
	Index    []time.Time
}

// Len returns the number of rows.
func (p Partition) Len() int {
	return len(p.Target)
}

// Empty reports whether the partition has no rows.
func (p Partition) Empty() bool {
	return p.Len() == 0
}

// Start returns the first timestamp, or the zero time when empty.
func (p Partition) Start() time.Time {
	if p.Empty() {
		return time.Time{}
	}
	return p.Index[0]
}

// End returns the last timestamp, or the zero time when empty.
func (p Partition) End() time.Time {
	if p.Empty() {
		return time.Time{}
	}
	return p.Index[len(p.Index)-1]
}

// Stats describes how many rows each span offered and how many the
// completeness mask removed.
type Stats struct {
	HistoryRows     int
	TrainCandidates int
	TrainDropped    int
	TestCandidates  int
	TestDropped     int
}

// Partitions is the result of Split.
type Partitions struct {
	Train Partition
	Test  Partition
	Keys  []features.Key
	Stats Stats
}
