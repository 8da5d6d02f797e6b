// Package main runs the dataset service: on every tick it builds the
// production datasets for tomorrow and regenerates the run report.
// NOT_READY days are retried on later ticks; READY days are reused.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"energy-forecast-lab/internal/app"
	"energy-forecast-lab/internal/config"
	"energy-forecast-lab/internal/domain"
	"energy-forecast-lab/internal/forecast"
	"energy-forecast-lab/internal/logging"
	"energy-forecast-lab/internal/observability"
	"energy-forecast-lab/internal/reporting"
)

// Server schedules dataset builds and serves health, metrics and status.
type Server struct {
	cfg       *config.Config
	variants  []domain.Variant
	interval  time.Duration
	outputDir string

	stores *app.Stores
	runner *forecast.Runner
	logger *slog.Logger

	mu        sync.Mutex
	started   time.Time
	lastTick  time.Time
	ticks     int
	lastRuns  []reporting.RunRow
	lastError string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Parse flags
	interval := flag.Duration("interval", time.Hour, "Dataset build interval")
	variants := flag.String("variants", "no_temp,with_temp", "Comma-separated variants: no_temp, with_temp")
	outputDir := flag.String("output-dir", "output", "Output directory for REPORT.md and runs.csv")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	addr := flag.String("addr", ":9090", "HTTP address for /health, /metrics and /status (empty to disable)")

	flag.Parse()

	logger, flush := logging.New(cfg.IsProd())
	defer func() { _ = flush() }()
	logger = logger.With(slog.String("cmd", "server"))

	if err := run(cfg, logger, *interval, *variants, *outputDir, *useMemory, *addr); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server failed", slog.Any("error", err))
		_ = flush()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *slog.Logger, interval time.Duration, rawVariants, outputDir string, useMemory bool, addr string) error {
	if interval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", interval)
	}
	variants, err := domain.ParseVariants(rawVariants)
	if err != nil {
		return err
	}

	ctx, cancel := app.SignalContext(logger)
	defer cancel()

	var stores *app.Stores
	if useMemory {
		logger.Warn("using in-memory storage, nothing will be ingested")
		stores = app.MemoryStores()
	} else if stores, err = app.OpenStores(ctx, cfg, logger); err != nil {
		return err
	}
	defer stores.Close()

	s := &Server{
		cfg:       cfg,
		variants:  variants,
		interval:  interval,
		outputDir: outputDir,
		stores:    stores,
		runner: forecast.NewRunner(forecast.Options{
			Readings:    stores.Readings,
			Temperature: stores.Temperature,
			FeatureRows: stores.FeatureRows,
			Runs:        stores.Runs,
			Metrics:     observability.NewMetrics("", nil),
			Logger:      logger,
		}),
		logger:  logger,
		started: time.Now().UTC(),
	}

	if srv := s.httpServer(addr); srv != nil {
		go func() {
			logger.Info("starting http server", slog.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	} else {
		logger.Warn("http server disabled, no --addr given")
	}

	return s.Run(ctx)
}

// Run ticks until ctx is cancelled. The first tick runs immediately.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.tick(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Server) tick(ctx context.Context) {
	plan, err := forecast.NewPlan(nil, s.cfg.TrainDays, nil)
	if err != nil {
		s.fail(err)
		return
	}
	s.logger.InfoContext(ctx, "building datasets", slog.String("day", plan.Day()))

	var results []*forecast.RunResult
	var errs []error
	for _, v := range s.variants {
		res, err := s.runner.Run(ctx, forecast.Request{
			CommunityID:  s.cfg.CommunityID,
			Plan:         plan,
			Variant:      v,
			Spec:         s.cfg.Spec,
			FillLimit:    s.cfg.FillLimit,
			MinTrainRows: s.cfg.MinTrainRows,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", v, err))
			continue
		}
		if !res.Ready() {
			s.logger.WarnContext(ctx, "dataset not ready, will retry",
				slog.String("variant", string(v)),
				slog.String("status", string(res.Run.Status)),
				slog.Any("reason", res.Assessment.Err),
			)
		}
		results = append(results, res)
	}

	if err := s.writeReport(ctx); err != nil {
		errs = append(errs, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++
	s.lastTick = time.Now().UTC()
	s.lastRuns = reporting.FromResults(s.lastTick, s.cfg.CommunityID, results).Runs
	s.lastError = ""
	if err := errors.Join(errs...); err != nil {
		s.lastError = err.Error()
		s.logger.ErrorContext(ctx, "tick failed", slog.Any("error", err))
	}
}

// writeReport regenerates REPORT.md and runs.csv from the persisted runs.
func (s *Server) writeReport(ctx context.Context) error {
	if s.outputDir == "" {
		return nil
	}
	report, err := reporting.NewGenerator(s.stores.Runs).Generate(ctx, s.cfg.CommunityID)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return err
	}

	files := map[string]string{
		"REPORT.md": reporting.RenderMarkdown(report),
		"runs.csv":  reporting.RenderRunsCSV(report.Runs),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(s.outputDir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func (s *Server) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err.Error()
	s.logger.Error("tick failed", slog.Any("error", err))
}

// httpServer returns the status, health and metrics server, or nil when addr is empty.
func (s *Server) httpServer(addr string) *http.Server {
	srv := app.NewMetricsServer(addr)
	if srv == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/", srv.Handler)
	mux.HandleFunc("/status", s.handleStatus)
	srv.Handler = mux
	return srv
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status    string             `json:"status"`
	Uptime    string             `json:"uptime"`
	Ticks     int                `json:"ticks"`
	LastTick  time.Time          `json:"last_tick,omitempty"`
	LastRuns  []reporting.RunRow `json:"last_runs"`
	LastError string             `json:"last_error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:    "running",
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Ticks:     s.ticks,
		LastTick:  s.lastTick,
		LastRuns:  s.lastRuns,
		LastError: s.lastError,
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
