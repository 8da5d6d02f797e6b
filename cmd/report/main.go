package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"energy-forecast-lab/internal/app"
	"energy-forecast-lab/internal/config"
	"energy-forecast-lab/internal/logging"
	"energy-forecast-lab/internal/reporting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Parse flags
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	communityID := flag.Int64("community-id", cfg.CommunityID, "Energy community")
	flag.Parse()

	logger, flush := logging.New(cfg.IsProd())
	defer func() { _ = flush() }()
	logger = logger.With(slog.String("cmd", "report"))

	if err := run(cfg, logger, *communityID, *outputDir); err != nil {
		logger.Error("report failed", slog.Any("error", err))
		_ = flush()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, communityID int64, outputDir string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	report, err := reporting.NewGenerator(stores.Runs).Generate(ctx, communityID)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	files := map[string]string{
		"REPORT.md": reporting.RenderMarkdown(report),
		"runs.csv":  reporting.RenderRunsCSV(report.Runs),
	}
	for name, content := range files {
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	fmt.Println("Report generated successfully:")
	fmt.Printf("  - %s\n", filepath.Join(outputDir, "REPORT.md"))
	fmt.Printf("  - %s\n", filepath.Join(outputDir, "runs.csv"))
	fmt.Printf("  Runs: %d (ready %d, not ready %d, insufficient %d)\n",
		report.Summary.TotalRuns, report.Summary.Ready, report.Summary.NotReady, report.Summary.Insufficient)
	return nil
}
