package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const queryTimeout = 10 * time.Second

// Config controls the headless browser.
type Config struct {
	UserAgent  string
	NavTimeout time.Duration
	// HostQPS caps navigations per host. Zero disables the budget.
	HostQPS float64
}

// Browser owns a headless Chrome instance and hands out tab-backed sessions.
type Browser struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
	cfg             Config
	hostLimiters    sync.Map
}

// New launches headless Chrome. A launch failure is fatal to the run.
func New(cfg Config, logger *zap.Logger) (*Browser, error) {
	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Browser{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
		cfg:             cfg,
	}, nil
}

// Close tears down the chromedp allocator and browser contexts.
func (b *Browser) Close() error {
	if b == nil {
		return nil
	}
	b.browserCancel()
	b.allocatorCancel()
	return nil
}

// NewSession opens a fresh tab isolated from other sessions.
func (b *Browser) NewSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	return &chromedpSession{
		browser:   b,
		tabCtx:    tabCtx,
		cancelTab: cancelTab,
	}, nil
}

func (b *Browser) waitHostBudget(ctx context.Context, rawURL string) error {
	if b.cfg.HostQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := b.hostLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(b.cfg.HostQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

type chromedpSession struct {
	browser   *Browser
	tabCtx    context.Context
	cancelTab context.CancelFunc

	mu      sync.RWMutex
	blocked map[network.ResourceType]bool
}

func (s *chromedpSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *chromedpSession) Navigate(ctx context.Context, rawURL string) error {
	if err := s.browser.waitHostBudget(ctx, rawURL); err != nil {
		return fmt.Errorf("navigation budget: %w", err)
	}
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(s.browser.cfg.UserAgent),
		chromedp.Navigate(rawURL),
		// Proceed as soon as the base document is parsed; blocked assets
		// would otherwise stall a full-load wait.
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if err := s.run(ctx, s.browser.cfg.NavTimeout, tasks); err != nil {
		return fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	return nil
}

func (s *chromedpSession) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	err := s.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("wait %q: %w", selector, ctxErr)
		}
		return fmt.Errorf("wait %q: %w", selector, ErrWaitTimeout)
	}
	return nil
}

// elementSnapshot mirrors the object literal built by snapshotJS.
type elementSnapshot struct {
	Text    string            `json:"text"`
	Attrs   map[string]string `json:"attrs"`
	Visible bool              `json:"visible"`
}

const snapshotJS = `(() => {
	const out = [];
	for (const el of document.querySelectorAll(%q)) {
		const attrs = {};
		for (const a of el.attributes) { attrs[a.name] = a.value; }
		out.push({
			text: (el.innerText || el.textContent || ''),
			attrs: attrs,
			visible: !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length),
		});
	}
	return out;
})()`

func (s *chromedpSession) QuerySelectorAll(ctx context.Context, selector string) ([]Element, error) {
	var snaps []elementSnapshot
	js := fmt.Sprintf(snapshotJS, selector)
	if err := s.run(ctx, queryTimeout, chromedp.Evaluate(js, &snaps)); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	elements := make([]Element, 0, len(snaps))
	for _, snap := range snaps {
		elements = append(elements, Element{
			Text:    snap.Text,
			Attrs:   snap.Attrs,
			Visible: snap.Visible,
		})
	}
	return elements, nil
}

func (s *chromedpSession) ScrollToBottom(ctx context.Context) error {
	const js = `window.scrollTo(0, document.body.scrollHeight)`
	if err := s.run(ctx, queryTimeout, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("scroll to bottom: %w", err)
	}
	return nil
}

// BlockResourceTypes enables the fetch domain and aborts paused requests of
// the configured kinds. Everything else continues untouched.
func (s *chromedpSession) BlockResourceTypes(kinds ...ResourceKind) error {
	s.mu.Lock()
	if s.blocked == nil {
		s.blocked = make(map[network.ResourceType]bool, len(kinds))
	}
	for _, k := range kinds {
		s.blocked[network.ResourceType(k)] = true
	}
	s.mu.Unlock()

	chromedp.ListenTarget(s.tabCtx, func(ev interface{}) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go s.resolvePaused(paused)
	})
	if err := chromedp.Run(s.tabCtx, fetch.Enable()); err != nil {
		return fmt.Errorf("enable interception: %w", err)
	}
	return nil
}

func (s *chromedpSession) resolvePaused(paused *fetch.EventRequestPaused) {
	c := chromedp.FromContext(s.tabCtx)
	execCtx := cdp.WithExecutor(s.tabCtx, c.Target)

	s.mu.RLock()
	abort := s.blocked[paused.ResourceType]
	s.mu.RUnlock()

	if abort {
		if err := fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx); err != nil && s.browser.logger != nil {
			s.browser.logger.Debug("fail intercepted request", zap.Error(err))
		}
		return
	}
	if err := fetch.ContinueRequest(paused.RequestID).Do(execCtx); err != nil && s.browser.logger != nil {
		s.browser.logger.Debug("continue intercepted request", zap.Error(err))
	}
}

func (s *chromedpSession) Close() error {
	s.cancelTab()
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
