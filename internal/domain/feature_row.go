package domain

// Partition names.
const (
	PartitionTrain = "train"
	PartitionTest  = "test"
)

// FeatureRow is one complete row of a dataset partition.
// Corresponds to feature_rows table in ClickHouse.
type FeatureRow struct {
	RunID       string             // dataset run identifier
	Partition   string             // train | test
	TimestampMs int64              // row hour, Unix milliseconds
	Features    map[string]float64 // feature name -> value, every column present
	Target      float64            // consumption at TimestampMs
}
