package harvest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/seedscout/harvester/internal/clock"
	"github.com/seedscout/harvester/internal/config"
)

// CSVSink persists result snapshots as flat CSV files: a fixed progress file
// overwritten after every batch, plus one dated final export.
type CSVSink struct {
	dir          string
	progressPath string
	clock        clock.Clock
	logger       *zap.Logger
}

// NewCSVSink returns a sink rooted at the configured output directory.
func NewCSVSink(cfg config.OutputConfig, clk clock.Clock, logger *zap.Logger) (*CSVSink, error) {
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", cfg.Dir, err)
	}
	return &CSVSink{
		dir:          cfg.Dir,
		progressPath: filepath.Join(cfg.Dir, cfg.ProgressFile),
		clock:        clk,
		logger:       logger,
	}, nil
}

// ProgressPath reports where interim checkpoints land.
func (s *CSVSink) ProgressPath() string {
	return s.progressPath
}

// Checkpoint overwrites the progress file with the full accumulated result
// set. A failed write (e.g. the file held open by a spreadsheet) is logged
// and skipped: checkpoints are best effort and must never block the run.
func (s *CSVSink) Checkpoint(ctx context.Context, records []CompanyRecord) {
	if err := s.write(ctx, s.progressPath, records); err != nil {
		checkpointSkips.Inc()
		s.logger.Warn("checkpoint skipped",
			zap.String("path", s.progressPath),
			zap.Error(err),
		)
		return
	}
	checkpointWrites.Inc()
	s.logger.Info("checkpoint written",
		zap.String("path", s.progressPath),
		zap.Int("records", len(records)),
	)
}

// Export writes the complete dataset to a dated filename and returns its path.
func (s *CSVSink) Export(ctx context.Context, records []CompanyRecord) (string, error) {
	name := fmt.Sprintf("companies_%s.csv", s.clock.Now().Format("20060102"))
	path := filepath.Join(s.dir, name)
	if err := s.write(ctx, path, records); err != nil {
		return "", fmt.Errorf("final export: %w", err)
	}
	return path, nil
}

func (s *CSVSink) write(ctx context.Context, path string, records []CompanyRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	writeErr := w.Write(CSVHeader())
	for _, record := range records {
		if writeErr != nil {
			break
		}
		writeErr = w.Write(record.CSVRow())
	}
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}

	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return fmt.Errorf("write %s: %w", path, writeErr)
	}
	return nil
}
