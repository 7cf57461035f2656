package harvest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/seedscout/harvester/internal/browser"
	"github.com/seedscout/harvester/internal/clock"
	"github.com/seedscout/harvester/internal/config"
)

// Runner sequences the pipeline: discovery, batched bounded extraction,
// checkpointing, final export.
type Runner struct {
	opener browser.Opener
	engine *Engine
	sink   *CSVSink
	cfg    config.Config
	clock  clock.Clock
	logger *zap.Logger
}

// NewRunner wires the pipeline from its collaborators.
func NewRunner(opener browser.Opener, cfg config.Config, clk clock.Clock, logger *zap.Logger) (*Runner, error) {
	sink, err := NewCSVSink(cfg.Output, clk, logger)
	if err != nil {
		return nil, err
	}
	return &Runner{
		opener: opener,
		engine: NewEngine(opener, cfg.Fetch, clk, logger),
		sink:   sink,
		cfg:    cfg,
		clock:  clk,
		logger: logger,
	}, nil
}

// Run executes one full harvest. Per-profile faults are absorbed as failure
// rows; only discovery-level and final-export faults surface as errors.
func (r *Runner) Run(ctx context.Context) error {
	urls, err := r.discover(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("harvesting profiles",
		zap.Int("urls", len(urls)),
		zap.Int("batch_size", r.cfg.Output.BatchSize),
		zap.Int("concurrency", r.cfg.Fetch.Concurrency),
	)

	results := make([]CompanyRecord, 0, len(urls))
	batchSize := r.cfg.Output.BatchSize
	for start := 0; start < len(urls); start += batchSize {
		end := min(start+batchSize, len(urls))
		r.logger.Info("processing batch",
			zap.Int("batch", start/batchSize+1),
			zap.Int("from", start),
			zap.Int("to", end),
		)

		// Each batch fully joins before the next starts; the limiter inside
		// the engine bounds concurrency within it.
		results = append(results, r.engine.FetchAll(ctx, urls[start:end])...)
		r.sink.Checkpoint(ctx, results)

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("harvest interrupted: %w", err)
		}
	}

	path, err := r.sink.Export(ctx, results)
	if err != nil {
		return err
	}
	r.logger.Info("harvest complete",
		zap.Int("records", len(results)),
		zap.String("output", path),
	)
	return nil
}

// discover opens a dedicated session for the directory page, runs the link
// discovery loop, and releases the session before fetching begins.
func (r *Runner) discover(ctx context.Context) ([]string, error) {
	session, err := r.opener.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open discovery session: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			r.logger.Warn("close discovery session", zap.Error(closeErr))
		}
	}()

	discoverer := NewDiscoverer(session, r.cfg.Directory, r.cfg.Discovery, r.clock, r.logger)
	return discoverer.Discover(ctx)
}
