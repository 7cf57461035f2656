package harvest

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seedscout/harvester/internal/browser"
	"github.com/seedscout/harvester/internal/config"
)

// runnerOpener serves the directory session first, then profile sessions.
type runnerOpener struct {
	*fakeOpener
	directory *scrollSession

	mu     sync.Mutex
	served bool
}

func (o *runnerOpener) NewSession(ctx context.Context) (browser.Session, error) {
	o.mu.Lock()
	if !o.served {
		o.served = true
		o.mu.Unlock()
		return o.directory, nil
	}
	o.mu.Unlock()
	return o.fakeOpener.NewSession(ctx)
}

func runnerConfig(t *testing.T, target, batchSize int) config.Config {
	t.Helper()
	return config.Config{
		Directory: directoryConfig(),
		Discovery: config.DiscoveryConfig{
			TargetCount: target,
			MaxAttempts: 150,
			StallLimit:  4,
		},
		Fetch: fetchConfig(3),
		Output: config.OutputConfig{
			Dir:          t.TempDir(),
			ProgressFile: "progress.csv",
			BatchSize:    batchSize,
		},
	}
}

func TestRunner_EndToEnd(t *testing.T) {
	// Directory exposes exactly 3 profiles; the target is far higher.
	opener := &runnerOpener{
		fakeOpener: newFakeOpener(profileFixture),
		directory:  &scrollSession{pages: growingPages(3)},
	}
	cfg := runnerConfig(t, 500, 50)
	clk := newFakeClock()

	runner, err := NewRunner(opener, cfg, clk, zap.NewNop())
	require.NoError(t, err)

	writesBefore := testutil.ToFloat64(checkpointWrites)
	require.NoError(t, runner.Run(context.Background()))

	rows := readCSV(t, runner.sink.ProgressPath())
	require.Len(t, rows, 4, "header plus one row per discovered profile")
	for _, row := range rows[1:] {
		require.NotEqual(t, "Error", row[0])
		require.Equal(t, "Acme Robotics", row[0])
	}

	require.Equal(t, float64(1), testutil.ToFloat64(checkpointWrites)-writesBefore,
		"three URLs in one batch means one checkpoint")
	require.True(t, opener.directory.closed, "discovery session must be released")
}

func TestRunner_CheckpointCadence(t *testing.T) {
	opener := &runnerOpener{
		fakeOpener: newFakeOpener(profileFixture),
		directory:  &scrollSession{pages: growingPages(120)},
	}
	cfg := runnerConfig(t, 120, 50)

	runner, err := NewRunner(opener, cfg, newFakeClock(), zap.NewNop())
	require.NoError(t, err)

	writesBefore := testutil.ToFloat64(checkpointWrites)
	require.NoError(t, runner.Run(context.Background()))

	require.Equal(t, float64(3), testutil.ToFloat64(checkpointWrites)-writesBefore,
		"ceil(120/50) checkpoints expected")

	rows := readCSV(t, runner.sink.ProgressPath())
	require.Len(t, rows, 121, "final checkpoint carries the cumulative set")
}

func TestRunner_FailuresDoNotAbortRun(t *testing.T) {
	opener := &runnerOpener{
		fakeOpener: newFakeOpener(profileFixture),
		directory:  &scrollSession{pages: growingPages(5)},
	}
	cfg := runnerConfig(t, 5, 2)

	runner, err := NewRunner(opener, cfg, newFakeClock(), zap.NewNop())
	require.NoError(t, err)

	// One profile fails both attempts; the run still completes with an
	// Error row for it.
	opener.failNavigations("https://www.ycombinator.com/companies/startup-c-2", 2)

	require.NoError(t, runner.Run(context.Background()))

	rows := readCSV(t, runner.sink.ProgressPath())
	require.Len(t, rows, 6)
	errorRows := 0
	for _, row := range rows[1:] {
		if row[0] == "Error" {
			errorRows++
			require.NotEmpty(t, row[5], "failure row must carry the source URL")
		}
	}
	require.Equal(t, 1, errorRows)
}
