package harvest

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seedscout/harvester/internal/browser"
	"github.com/seedscout/harvester/internal/clock"
	"github.com/seedscout/harvester/internal/config"
)

// maxFetchAttempts is the fixed per-URL attempt budget: one retry, two
// attempts total, uniform across all URLs.
const maxFetchAttempts = 2

// Engine fetches and extracts profile pages with bounded concurrency. Each
// in-flight operation owns one isolated session; the limiter slot is held for
// the operation's entire attempt sequence, retries included.
type Engine struct {
	opener browser.Opener
	cfg    config.FetchConfig
	clock  clock.Clock
	logger *zap.Logger
}

// NewEngine constructs an Engine.
func NewEngine(opener browser.Opener, cfg config.FetchConfig, clk clock.Clock, logger *zap.Logger) *Engine {
	return &Engine{
		opener: opener,
		cfg:    cfg,
		clock:  clk,
		logger: logger,
	}
}

// FetchAll processes every URL exactly once and returns one record per URL in
// completion order. Individual failures degrade to failure records; they
// never abort the batch.
func (e *Engine) FetchAll(ctx context.Context, urls []string) []CompanyRecord {
	sem := make(chan struct{}, e.cfg.Concurrency)
	results := make(chan CompanyRecord, len(urls))

	var wg sync.WaitGroup
	for _, url := range urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fetchInFlight.Inc()
			defer fetchInFlight.Dec()
			results <- e.fetchOne(ctx, url)
		}(url)
	}
	wg.Wait()
	close(results)

	records := make([]CompanyRecord, 0, len(urls))
	for record := range results {
		records = append(records, record)
	}
	return records
}

// fetchOne runs the per-URL state machine: up to maxFetchAttempts attempts
// with a fixed backoff between them, then a failure record.
func (e *Engine) fetchOne(ctx context.Context, url string) CompanyRecord {
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		fetchAttempts.Inc()
		record, err := e.attempt(ctx, url)
		if err == nil {
			profilesScraped.Inc()
			return record
		}

		e.logger.Warn("profile fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < maxFetchAttempts {
			fetchRetries.Inc()
			if sleepErr := e.clock.Sleep(ctx, e.cfg.RetryBackoff); sleepErr != nil {
				break
			}
		}
	}

	profilesFailed.Inc()
	e.logger.Error("profile abandoned after retry exhaustion", zap.String("url", url))
	return NewFailureRecord(url)
}

func (e *Engine) attempt(ctx context.Context, url string) (record CompanyRecord, err error) {
	session, err := e.opener.NewSession(ctx)
	if err != nil {
		return CompanyRecord{}, fmt.Errorf("open session: %w", err)
	}
	// Sessions are closed on success, failure, and timeout paths alike.
	defer func() {
		if closeErr := session.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close session: %w", closeErr)
		}
	}()

	if err := session.BlockResourceTypes(
		browser.ResourceImage,
		browser.ResourceFont,
		browser.ResourceStylesheet,
	); err != nil {
		return CompanyRecord{}, fmt.Errorf("install intercept rules: %w", err)
	}

	// Jitter before navigating breaks up request-timing regularity.
	if err := e.clock.Sleep(ctx, e.jitter()); err != nil {
		return CompanyRecord{}, fmt.Errorf("jitter wait: %w", err)
	}
	if err := session.Navigate(ctx, url); err != nil {
		return CompanyRecord{}, err
	}

	// Give client-side hydration a chance to render LinkedIn anchors. A
	// timeout here is not an error: extract whatever is present.
	if waitErr := session.WaitForSelector(ctx, selLinkedIn, e.cfg.HydrationWait); waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return CompanyRecord{}, ctxErr
		}
	}

	record, err = Extract(ctx, session)
	if err != nil {
		return CompanyRecord{}, err
	}
	record.SourceURL = url
	return record, nil
}

// jitter draws a uniform delay from [JitterMin, JitterMax).
func (e *Engine) jitter() time.Duration {
	span := e.cfg.JitterMax - e.cfg.JitterMin
	if span <= 0 {
		return e.cfg.JitterMin
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(span)))
	if err != nil {
		return e.cfg.JitterMin + span/2
	}
	return e.cfg.JitterMin + time.Duration(n.Int64())
}
