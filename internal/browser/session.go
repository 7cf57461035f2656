// Package browser wraps headless page rendering behind a small session API.
//
// A Session owns one isolated, script-executable page. Callers navigate it,
// query it by CSS selector, and close it; all calls may block and may fail
// with a render-layer error.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout reports that a selector did not appear within its deadline.
var ErrWaitTimeout = errors.New("wait for selector timed out")

// ResourceKind names a sub-resource class for request interception.
type ResourceKind string

// Resource kinds understood by BlockResourceTypes.
const (
	ResourceImage      ResourceKind = "Image"
	ResourceFont       ResourceKind = "Font"
	ResourceStylesheet ResourceKind = "Stylesheet"
)

// Element is a point-in-time snapshot of a DOM node.
type Element struct {
	Text    string
	Attrs   map[string]string
	Visible bool
}

// Attr returns the named attribute value and whether it was present.
func (e Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// Session is a single navigable page.
type Session interface {
	// Navigate loads the URL, returning once the base document is parsed.
	// Sub-resources may still be loading when it returns.
	Navigate(ctx context.Context, url string) error
	// WaitForSelector blocks until at least one node matches the selector
	// or the timeout elapses, in which case it returns ErrWaitTimeout.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	// QuerySelectorAll snapshots every node matching the selector.
	QuerySelectorAll(ctx context.Context, selector string) ([]Element, error)
	// ScrollToBottom scrolls to the document's current bottom extent.
	ScrollToBottom(ctx context.Context) error
	// BlockResourceTypes aborts sub-resource requests of the given kinds.
	// The primary document and script/XHR requests are never blocked.
	BlockResourceTypes(kinds ...ResourceKind) error
	Close() error
}

// Opener hands out fresh isolated sessions.
type Opener interface {
	NewSession(ctx context.Context) (Session, error)
}
