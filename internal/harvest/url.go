package harvest

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeProfileURL resolves href against the directory root and reduces it
// to scheme+host+path, dropping query and fragment so that set membership is
// exact-string equality. The second return is false when href does not live
// under the profile path prefix.
func NormalizeProfileURL(base *url.URL, href, prefix string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if !strings.EqualFold(abs.Host, base.Host) {
		return "", false
	}
	if !strings.HasPrefix(abs.Path, prefix) {
		return "", false
	}
	// Bare prefix is the directory page itself, not a profile.
	if strings.Trim(strings.TrimPrefix(abs.Path, prefix), "/") == "" {
		return "", false
	}
	abs.RawQuery = ""
	abs.Fragment = ""
	abs.Scheme = strings.ToLower(abs.Scheme)
	abs.Host = strings.ToLower(abs.Host)
	return abs.String(), true
}

// NormalizeLinkedInURL strips tracking query parameters, fragments, and
// trailing slashes from a LinkedIn profile URL. Applying it twice yields the
// same result as applying it once.
func NormalizeLinkedInURL(raw string) string {
	clean := raw
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	return strings.TrimRight(strings.TrimSpace(clean), "/")
}

// ParseRoot parses and sanity-checks the directory root URL.
func ParseRoot(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse directory root: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("directory root %q must be an absolute URL", raw)
	}
	return parsed, nil
}
