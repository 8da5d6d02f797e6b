package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"energy-forecast-lab/internal/app"
	"energy-forecast-lab/internal/config"
	"energy-forecast-lab/internal/ingestion"
	"energy-forecast-lab/internal/logging"
	"energy-forecast-lab/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Parse flags
	meterCSV := flag.String("meter-csv", "", "Meter reading export (DateTimeUtc,MeteringPointId,Consumption,ConsumptionCommunity)")
	temperatureCSV := flag.String("temperature-csv", "", "Temperature export (DateTimeUtc,Temperature)")
	communityID := flag.Int64("community-id", cfg.CommunityID, "Energy community the exports belong to")
	fromTime := flag.String("from-time", "", "Skip readings before this time (RFC3339)")
	toTime := flag.String("to-time", "", "Skip readings after this time (RFC3339)")
	batchSize := flag.Int("batch-size", 1000, "Readings per insert batch")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL (dry run)")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger, flush := logging.New(cfg.IsProd())
	defer func() { _ = flush() }()
	logger = logger.With(slog.String("cmd", "ingest"))

	if err := run(cfg, logger, options{
		meterCSV:       *meterCSV,
		temperatureCSV: *temperatureCSV,
		communityID:    *communityID,
		fromTime:       *fromTime,
		toTime:         *toTime,
		batchSize:      *batchSize,
		useMemory:      *useMemory,
		metricsAddr:    *metricsAddr,
	}); err != nil {
		logger.Error("ingest failed", slog.Any("error", err))
		_ = flush()
		os.Exit(1)
	}
}

type options struct {
	meterCSV       string
	temperatureCSV string
	communityID    int64
	fromTime       string
	toTime         string
	batchSize      int
	useMemory      bool
	metricsAddr    string
}

func run(cfg *config.Config, logger *slog.Logger, opts options) error {
	if opts.meterCSV == "" && opts.temperatureCSV == "" {
		return fmt.Errorf("--meter-csv or --temperature-csv is required")
	}

	from, err := parseOptionalTime(opts.fromTime)
	if err != nil {
		return fmt.Errorf("--from-time: %w", err)
	}
	to, err := parseOptionalTime(opts.toTime)
	if err != nil {
		return fmt.Errorf("--to-time: %w", err)
	}

	ctx, cancel := app.SignalContext(logger)
	defer cancel()

	stopMetrics := app.ServeMetrics(opts.metricsAddr, logger)
	defer stopMetrics()

	stores, err := openStores(ctx, cfg, logger, opts.useMemory)
	if err != nil {
		return err
	}
	defer stores.Close()

	bfOpts := ingestion.BackfillOptions{
		MeterStore:       stores.Readings,
		TemperatureStore: stores.Temperature,
		BatchSize:        opts.batchSize,
		Metrics:          observability.NewMetrics("", nil),
		Logger:           logger,
	}
	if opts.meterCSV != "" {
		bfOpts.MeterSource = ingestion.NewCSVMeterSource(opts.meterCSV, opts.communityID)
	}
	if opts.temperatureCSV != "" {
		bfOpts.TemperatureSource = ingestion.NewCSVTemperatureSource(opts.temperatureCSV, opts.communityID)
	}

	result, err := ingestion.NewBackfiller(bfOpts).BackfillRange(ctx, from, to)
	if err != nil {
		return err
	}

	fmt.Printf("meter readings:       %d\n", result.MeterReadingsIngested)
	fmt.Printf("temperature readings: %d\n", result.TemperatureReadingsIngested)
	fmt.Printf("duplicates skipped:   %d\n", result.DuplicatesSkipped)
	fmt.Printf("errors:               %d\n", result.Errors)
	fmt.Printf("duration:             %v\n", result.Duration.Round(time.Millisecond))

	if result.Errors > 0 {
		return fmt.Errorf("%d readings failed to store", result.Errors)
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger, useMemory bool) (*app.Stores, error) {
	if useMemory {
		logger.Warn("using in-memory storage, nothing is kept after exit")
		return app.MemoryStores(), nil
	}
	return app.OpenStores(ctx, cfg, logger)
}

func parseOptionalTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
