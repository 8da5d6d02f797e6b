package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Dataset Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Community: %d\n\n", r.CommunityID))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Runs | %d |\n", r.Summary.TotalRuns))
	sb.WriteString(fmt.Sprintf("| READY | %d |\n", r.Summary.Ready))
	sb.WriteString(fmt.Sprintf("| NOT_READY | %d |\n", r.Summary.NotReady))
	sb.WriteString(fmt.Sprintf("| INSUFFICIENT | %d |\n", r.Summary.Insufficient))
	sb.WriteString(fmt.Sprintf("| First Day | %s |\n", orDash(r.Summary.FirstDay)))
	sb.WriteString(fmt.Sprintf("| Last Day | %s |\n", orDash(r.Summary.LastDay)))
	sb.WriteString(fmt.Sprintf("| Mean Train Rows | %.1f |\n", r.Summary.MeanTrainRows))
	sb.WriteString(fmt.Sprintf("| Mean Test Rows | %.1f |\n", r.Summary.MeanTestRows))
	sb.WriteString("\n")

	// Runs
	sb.WriteString("## Runs\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Day | Variant | Mode | Status | Features | Train | Test | Train Dropped | Test Dropped | Run ID |\n")
		sb.WriteString("|-----|---------|------|--------|----------|-------|------|---------------|--------------|--------|\n")
		for _, run := range r.Runs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %d | %d | %d | %d | %s |\n",
				run.Day, run.Variant, run.Mode, run.Status,
				run.FeatureCount, run.TrainRows, run.TestRows, run.TrainDropped, run.TestDropped,
				orDash(run.RunID)))
		}
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	// Rejections
	if len(r.Rejections) > 0 {
		sb.WriteString("## Rejected Runs\n\n")
		sb.WriteString("| Day | Variant | Check | Threshold | Actual |\n")
		sb.WriteString("|-----|---------|-------|-----------|--------|\n")
		for _, rej := range r.Rejections {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				rej.Day, rej.Variant, rej.Check, rej.Threshold, rej.Actual))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
