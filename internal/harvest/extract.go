package harvest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/seedscout/harvester/internal/browser"
)

// ErrNameMissing reports a profile page without a resolvable primary heading.
// The name is the one required field; its absence fails the whole attempt.
var ErrNameMissing = errors.New("company name heading not found")

// Selectors for the profile page layout. Heuristic by design: the markup has
// no stable machine-readable contract.
const (
	selName        = "h1"
	selBatch       = "a[href*='batch=']"
	selDescription = "p.whitespace-pre-line, div.text-xl"
	selLinkedIn    = `a[href*="linkedin.com/in/"]`
)

// founderNameSelectors are scanned in order for founder name candidates.
var founderNameSelectors = []string{"div.font-bold", "h3"}

// founderBlacklist holds UI label words that disqualify a name candidate.
var founderBlacklist = map[string]struct{}{
	"Founders": {},
	"Jobs":     {},
	"Blog":     {},
	"Team":     {},
	"Company":  {},
	"Launch":   {},
	"News":     {},
}

const maxNameTokens = 3

// Extract reads one loaded profile page into a CompanyRecord. Every field is
// best effort except the company name. It performs no retries and no
// navigation; it only queries the session it is given.
func Extract(ctx context.Context, session browser.Session) (CompanyRecord, error) {
	name, err := extractName(ctx, session)
	if err != nil {
		return CompanyRecord{}, err
	}

	record := CompanyRecord{
		Name:        name,
		Batch:       firstVisibleText(ctx, session, selBatch),
		Description: firstVisibleText(ctx, session, selDescription),
	}
	record.FounderLinks = extractLinkedInURLs(ctx, session)
	record.FounderNames = extractFounderNames(ctx, session)
	return record, nil
}

func extractName(ctx context.Context, session browser.Session) (string, error) {
	headings, err := session.QuerySelectorAll(ctx, selName)
	if err != nil {
		return "", fmt.Errorf("query heading: %w", err)
	}
	for _, h := range headings {
		if name := strings.TrimSpace(h.Text); name != "" {
			return name, nil
		}
	}
	return "", ErrNameMissing
}

// firstVisibleText returns the trimmed text of the first visible match, or
// the sentinel when nothing matches. Hidden nodes are skipped: presence in
// the DOM is not enough.
func firstVisibleText(ctx context.Context, session browser.Session, selector string) string {
	elements, err := session.QuerySelectorAll(ctx, selector)
	if err != nil {
		return NotAvailable
	}
	for _, el := range elements {
		if !el.Visible {
			continue
		}
		if text := strings.TrimSpace(el.Text); text != "" {
			return text
		}
	}
	return NotAvailable
}

func extractLinkedInURLs(ctx context.Context, session browser.Session) []string {
	anchors, err := session.QuerySelectorAll(ctx, selLinkedIn)
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	var urls []string
	for _, a := range anchors {
		href, ok := a.Attr("href")
		if !ok {
			continue
		}
		clean := NormalizeLinkedInURL(href)
		if clean == "" {
			continue
		}
		if _, dup := seen[clean]; dup {
			continue
		}
		seen[clean] = struct{}{}
		urls = append(urls, clean)
	}
	return urls
}

func extractFounderNames(ctx context.Context, session browser.Session) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, selector := range founderNameSelectors {
		elements, err := session.QuerySelectorAll(ctx, selector)
		if err != nil {
			continue
		}
		for _, el := range elements {
			candidate := strings.TrimSpace(el.Text)
			if !AcceptFounderName(candidate) {
				continue
			}
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}
			names = append(names, candidate)
		}
	}
	return names
}

// AcceptFounderName applies the heuristic name filter: 1-3 whitespace tokens,
// none of which is a known UI label word.
func AcceptFounderName(candidate string) bool {
	tokens := strings.Fields(candidate)
	if len(tokens) == 0 || len(tokens) > maxNameTokens {
		return false
	}
	for _, token := range tokens {
		if _, banned := founderBlacklist[token]; banned {
			return false
		}
	}
	return true
}
