package harvest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/seedscout/harvester/internal/browser"
)

var errNavTimeout = errors.New("navigation timeout")

// fakeClock advances instantly so jitter/backoff tests run in real time zero.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) sleepCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sleeps)
}

// anchor builds an element snapshot for an <a href=...> node.
func anchor(href string) browser.Element {
	return browser.Element{
		Attrs:   map[string]string{"href": href},
		Visible: true,
	}
}

// scrollSession simulates the directory page: each scroll reveals the next
// cumulative set of anchors.
type scrollSession struct {
	pages   [][]browser.Element
	page    int
	scrolls int
	closed  bool
}

func (s *scrollSession) Navigate(ctx context.Context, _ string) error { return ctx.Err() }

func (s *scrollSession) WaitForSelector(ctx context.Context, _ string, _ time.Duration) error {
	return ctx.Err()
}

func (s *scrollSession) QuerySelectorAll(ctx context.Context, _ string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.pages) == 0 {
		return nil, nil
	}
	return s.pages[s.page], nil
}

func (s *scrollSession) ScrollToBottom(ctx context.Context) error {
	s.scrolls++
	if s.page < len(s.pages)-1 {
		s.page++
	}
	return ctx.Err()
}

func (s *scrollSession) BlockResourceTypes(...browser.ResourceKind) error { return nil }

func (s *scrollSession) Close() error {
	s.closed = true
	return nil
}

// profileSession wraps a static fixture document with scripted navigation
// faults so engine tests can exercise the retry state machine.
type profileSession struct {
	*browser.StaticSession
	opener *fakeOpener
	closed bool
}

func (s *profileSession) Navigate(ctx context.Context, url string) error {
	return s.opener.navigate(ctx, url)
}

func (s *profileSession) Close() error {
	s.closed = true
	s.opener.noteClosed()
	return nil
}

// fakeOpener hands out profileSessions over a fixture document and injects
// navigation faults per URL.
type fakeOpener struct {
	html string

	mu            sync.Mutex
	failuresLeft  map[string]int // navigation failures remaining per URL
	attempts      map[string]int // navigation attempts per URL
	opened        int
	closed        int
	inFlight      int
	maxInFlight   int
	navigateDelay time.Duration
}

func newFakeOpener(html string) *fakeOpener {
	return &fakeOpener{
		html:         html,
		failuresLeft: make(map[string]int),
		attempts:     make(map[string]int),
	}
}

func (o *fakeOpener) failNavigations(url string, times int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failuresLeft[url] = times
}

func (o *fakeOpener) NewSession(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	static, err := browser.NewStaticSession(o.html)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	o.opened++
	o.mu.Unlock()
	return &profileSession{StaticSession: static, opener: o}, nil
}

func (o *fakeOpener) navigate(ctx context.Context, url string) error {
	o.mu.Lock()
	o.attempts[url]++
	o.inFlight++
	if o.inFlight > o.maxInFlight {
		o.maxInFlight = o.inFlight
	}
	delay := o.navigateDelay
	fail := o.failuresLeft[url] > 0
	if fail {
		o.failuresLeft[url]--
	}
	o.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}

	o.mu.Lock()
	o.inFlight--
	o.mu.Unlock()

	if fail {
		return errNavTimeout
	}
	return ctx.Err()
}

func (o *fakeOpener) noteClosed() {
	o.mu.Lock()
	o.closed++
	o.mu.Unlock()
}

func (o *fakeOpener) stats() (opened, closed, maxInFlight int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened, o.closed, o.maxInFlight
}

func (o *fakeOpener) attemptCount(url string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempts[url]
}
