package utils

import (
	"net/url"
	"strings"
)

// NormalizeURL produces the dedup key for a listing URL: lower-cased,
// whitespace-trimmed, fragment dropped and trailing slashes removed.
// Query strings are kept since some marketplaces identify listings by them.
func NormalizeURL(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return strings.TrimRight(s[:i], "/") + s[i:]
	}
	return strings.TrimRight(s, "/")
}

// AbsoluteURL resolves href against base. Empty, javascript: and mailto:
// links resolve to "".
func AbsoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref.String()
	}
	return b.ResolveReference(ref).String()
}

// Host returns the host part of raw without a leading "www.".
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
