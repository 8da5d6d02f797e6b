package reporting

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"energy-forecast-lab/internal/dataset"
	"energy-forecast-lab/internal/features"
)

// RenderPartitionCSV renders a partition as CSV string with the header
// timestamp,<feature names...>,target. Columns follow keys.
func RenderPartitionCSV(p dataset.Partition, keys []features.Key) string {
	var sb strings.Builder

	// Header
	sb.WriteString("timestamp")
	for _, k := range keys {
		sb.WriteString(",")
		sb.WriteString(k.String())
	}
	sb.WriteString(",target\n")

	columns := make([][]float64, len(keys))
	if p.Features != nil {
		for i, k := range keys {
			columns[i] = p.Features.Column(k)
		}
	}

	// Rows
	for row := 0; row < p.Len(); row++ {
		sb.WriteString(p.Index[row].UTC().Format(time.RFC3339))
		for _, col := range columns {
			sb.WriteString(",")
			if col != nil {
				sb.WriteString(formatFloat(col[row]))
			}
		}
		sb.WriteString(",")
		sb.WriteString(formatFloat(p.Target[row]))
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderRunsCSV renders report runs as CSV string.
func RenderRunsCSV(rows []RunRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("day,variant,mode,status,feature_count,train_rows,test_rows,train_dropped,test_dropped,run_id\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%d,%d,%d,%d,%d,%s\n",
			r.Day,
			r.Variant,
			r.Mode,
			r.Status,
			r.FeatureCount,
			r.TrainRows,
			r.TestRows,
			r.TrainDropped,
			r.TestDropped,
			r.RunID,
		))
	}

	return sb.String()
}

func formatFloat(v float64) string {
	if features.IsAbsent(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
