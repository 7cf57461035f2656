package harvest

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/seedscout/harvester/internal/browser"
	"github.com/seedscout/harvester/internal/clock"
	"github.com/seedscout/harvester/internal/config"
)

// Discoverer drives a shared directory page session, triggering lazy loading
// until it has collected the target number of unique profile URLs or the
// attempt ceiling is hit.
type Discoverer struct {
	session browser.Session
	dir     config.DirectoryConfig
	cfg     config.DiscoveryConfig
	clock   clock.Clock
	logger  *zap.Logger
}

// NewDiscoverer builds a Discoverer over an already-open session.
func NewDiscoverer(
	session browser.Session,
	dir config.DirectoryConfig,
	cfg config.DiscoveryConfig,
	clk clock.Clock,
	logger *zap.Logger,
) *Discoverer {
	return &Discoverer{
		session: session,
		dir:     dir,
		cfg:     cfg,
		clock:   clk,
		logger:  logger,
	}
}

// Discover returns up to TargetCount unique profile URLs in first-seen order.
// Hitting the attempt ceiling before the target is degraded success, not an
// error: whatever was collected is returned.
func (d *Discoverer) Discover(ctx context.Context) ([]string, error) {
	base, err := ParseRoot(d.dir.RootURL)
	if err != nil {
		return nil, err
	}

	d.logger.Info("navigating to directory", zap.String("url", d.dir.RootURL))
	if err := d.session.Navigate(ctx, d.dir.RootURL); err != nil {
		return nil, fmt.Errorf("open directory page: %w", err)
	}

	seen := make(map[string]struct{})
	var links []string
	stalled := 0

	for attempt := 0; attempt < d.cfg.MaxAttempts; attempt++ {
		added, err := d.collect(ctx, base, seen, &links)
		if err != nil {
			return nil, err
		}
		if len(links) >= d.cfg.TargetCount {
			break
		}

		if added == 0 {
			stalled++
			if d.cfg.StallLimit > 0 && stalled >= d.cfg.StallLimit {
				d.logger.Info("discovery stalled, stopping early",
					zap.Int("collected", len(links)),
					zap.Int("stalled_attempts", stalled),
				)
				break
			}
		} else {
			stalled = 0
		}

		if err := d.session.ScrollToBottom(ctx); err != nil {
			return nil, fmt.Errorf("trigger lazy load: %w", err)
		}
		if err := d.clock.Sleep(ctx, d.cfg.SettleInterval); err != nil {
			return nil, fmt.Errorf("settle wait: %w", err)
		}
		discoveryAttempts.Inc()
	}

	if len(links) > d.cfg.TargetCount {
		links = links[:d.cfg.TargetCount]
	}
	d.logger.Info("discovery finished",
		zap.Int("collected", len(links)),
		zap.Int("target", d.cfg.TargetCount),
	)
	return links, nil
}

// collect scans the currently rendered document for profile anchors and
// reports how many previously unseen URLs it added.
func (d *Discoverer) collect(ctx context.Context, base *url.URL, seen map[string]struct{}, links *[]string) (int, error) {
	selector := fmt.Sprintf("a[href^=%q]", d.dir.ProfilePathPrefix)
	anchors, err := d.session.QuerySelectorAll(ctx, selector)
	if err != nil {
		return 0, fmt.Errorf("query profile anchors: %w", err)
	}

	added := 0
	for _, a := range anchors {
		href, ok := a.Attr("href")
		if !ok {
			continue
		}
		normalized, ok := NormalizeProfileURL(base, href, d.dir.ProfilePathPrefix)
		if !ok {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		*links = append(*links, normalized)
		added++
	}
	return added, nil
}
