package bypass

import (
	"net/http"
	"strings"
)

// Detector examines a rendered page to determine whether an anti-automation
// mechanism blocked or challenged the request rather than serving real
// results.
type Detector func(status int, html string) (detected bool, source string)

// DefaultDetectors returns the standard list of block detectors, ordered
// from most to least specific.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCaptcha,
		detectUnusualTraffic,
		detectStatusBlock,
	}
}

// Analyze runs the rendered page through all provided detectors and returns
// the first detection source, if any. A detection is a handled failure mode:
// callers log it, count it, and move on.
func Analyze(status int, html string, detectors []Detector) (bool, string) {
	for _, d := range detectors {
		if detected, source := d(status, html); detected {
			return true, source
		}
	}
	return false, ""
}

// detectCaptcha looks for challenge widgets in the page markup.
func detectCaptcha(status int, html string) (bool, string) {
	lower := strings.ToLower(html)
	if strings.Contains(lower, "recaptcha") ||
		strings.Contains(lower, "g-recaptcha") ||
		strings.Contains(lower, "captcha-form") {
		return true, "captcha"
	}
	return false, ""
}

// detectUnusualTraffic looks for the interstitial the search engine serves
// when it suspects automated queries.
func detectUnusualTraffic(status int, html string) (bool, string) {
	lower := strings.ToLower(html)
	if strings.Contains(lower, "unusual traffic") ||
		strings.Contains(lower, "automated queries") ||
		strings.Contains(lower, "not a robot") {
		return true, "unusual-traffic"
	}
	return false, ""
}

// detectStatusBlock treats hard denial status codes as blocks even when the
// body carries no recognizable signature.
func detectStatusBlock(status int, html string) (bool, string) {
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true, "status"
	}
	return false, ""
}
