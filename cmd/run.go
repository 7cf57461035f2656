package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seedscout/harvester/internal/browser"
	"github.com/seedscout/harvester/internal/clock/system"
	"github.com/seedscout/harvester/internal/config"
	"github.com/seedscout/harvester/internal/harvest"
	"github.com/seedscout/harvester/internal/logging"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs one full harvest",
		Long: `Discovers profile URLs from the configured directory page, fetches
each profile with bounded concurrency, and writes checkpointed CSV output
plus a final dated export.`,
		RunE: runHarvest,
	}
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Port > 0 {
		stopMetrics := serveMetrics(cfg.Metrics.Port, logger)
		defer stopMetrics()
	}

	// The browser is the one collaborator whose absence is fatal.
	b, err := browser.New(browser.Config{
		UserAgent:  cfg.Directory.UserAgent,
		NavTimeout: cfg.Fetch.NavTimeout,
		HostQPS:    cfg.Fetch.HostQPS,
	}, logger)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			logger.Warn("close browser", zap.Error(cerr))
		}
	}()

	runner, err := harvest.NewRunner(b, cfg, system.New(), logger)
	if err != nil {
		return fmt.Errorf("build runner: %w", err)
	}

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run harvest: %w", err)
	}
	return nil
}

func serveMetrics(port int, logger *zap.Logger) func() {
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
