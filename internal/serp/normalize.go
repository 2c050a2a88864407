package serp

import (
	"net/url"
	"strings"
)

// Normalize reduces a candidate href to the canonical profile identifier:
// https scheme, lowercased host, path only (no query or fragment), no
// trailing slash. Redirect wrappers are unwrapped first. The second return
// is false when the href does not lead to a profile page at all.
func Normalize(href string) (string, bool) {
	href = unwrapRedirect(href)

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	if host != "linkedin.com" && !strings.HasSuffix(host, ".linkedin.com") {
		return "", false
	}
	if !strings.Contains(u.Path, "/in/") {
		return "", false
	}

	path := strings.TrimSuffix(u.Path, "/")
	return "https://" + host + path, true
}

// unwrapRedirect resolves the search engine's /url? wrapper to the underlying
// target. Non-wrapper hrefs pass through unchanged.
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "/url?") {
		return href
	}

	u, err := url.Parse(href)
	if err != nil || u.Path != "/url" {
		return href
	}

	q := u.Query()
	if target := q.Get("url"); target != "" {
		return target
	}
	if target := q.Get("q"); target != "" {
		return target
	}
	return href
}
