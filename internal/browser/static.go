package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// StaticSession serves a fixed HTML document through the Session API.
// It runs no JavaScript, so lazy loading and hydration never happen; it is
// intended for fixtures and tests of selector-driven code.
type StaticSession struct {
	doc *goquery.Document
}

// NewStaticSession parses the HTML into a queryable session.
func NewStaticSession(html string) (*StaticSession, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse static document: %w", err)
	}
	return &StaticSession{doc: doc}, nil
}

// Navigate is a no-op: the document is fixed at construction.
func (s *StaticSession) Navigate(ctx context.Context, _ string) error {
	return ctx.Err()
}

// WaitForSelector resolves immediately: present selectors succeed, absent
// ones time out at once since nothing will ever hydrate.
func (s *StaticSession) WaitForSelector(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("wait %q: %w", selector, ErrWaitTimeout)
	}
	return nil
}

// QuerySelectorAll snapshots every matching node.
func (s *StaticSession) QuerySelectorAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var elements []Element
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		elements = append(elements, snapshotSelection(sel))
	})
	return elements, nil
}

// ScrollToBottom is a no-op: a static document has no lazy loading.
func (s *StaticSession) ScrollToBottom(ctx context.Context) error {
	return ctx.Err()
}

// BlockResourceTypes is a no-op: nothing is fetched.
func (s *StaticSession) BlockResourceTypes(...ResourceKind) error {
	return nil
}

// Close releases nothing and always succeeds.
func (s *StaticSession) Close() error {
	return nil
}

func snapshotSelection(sel *goquery.Selection) Element {
	attrs := make(map[string]string)
	for _, node := range sel.Nodes[:1] {
		for _, attr := range node.Attr {
			attrs[attr.Key] = attr.Val
		}
	}
	return Element{
		Text:    sel.Text(),
		Attrs:   attrs,
		Visible: selectionVisible(sel),
	}
}

// selectionVisible approximates a layout visibility check from static markup:
// a node is hidden if it or an ancestor carries the hidden attribute or an
// inline display:none / visibility:hidden style.
func selectionVisible(sel *goquery.Selection) bool {
	for cur := sel; cur.Length() > 0; cur = cur.Parent() {
		if goquery.NodeName(cur) == "#document" {
			break
		}
		if _, hidden := cur.Attr("hidden"); hidden {
			return false
		}
		style, _ := cur.Attr("style")
		style = strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}
