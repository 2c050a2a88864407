package serp

import (
	"strings"

	"github.com/FranksOps/prospector/internal/query"
	"github.com/PuerkitoBio/goquery"
)

// escapedMarker is the profile-path marker as it appears inside a
// URL-encoded redirect parameter.
var escapedMarker = strings.ReplaceAll(query.ProfilePathMarker, "/", "%2F")

// Strategy locates candidate profile links in a rendered results page. The
// search engine's markup shifts regularly, so discovery tries an ordered
// cascade of strategies and commits to the first one that yields anything,
// never mixing candidates from incompatible heuristics on the same page.
type Strategy struct {
	Name     string
	Selector string
}

// DefaultStrategies returns the cascade in preference order: the most
// precise selector first, progressively more generic scans after.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "direct", Selector: `a[href*='` + query.ProfilePathMarker + `/']`},
		{Name: "result-block", Selector: `div.g a[href]`},
		{Name: "title", Selector: `h3 a[href]`},
		{Name: "redirect", Selector: `a[href^='/url?']`},
		{Name: "tracked", Selector: `a[data-ved]`},
	}
}

// Candidates returns the hrefs under this strategy's selector that plausibly
// lead to a profile page, either directly or through a redirect wrapper.
func (s Strategy) Candidates(doc *goquery.Document) []string {
	var out []string
	doc.Find(s.Selector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		if isCandidate(href) {
			out = append(out, href)
		}
	})
	return out
}

func isCandidate(href string) bool {
	if strings.Contains(href, query.ProfilePathMarker+"/") {
		return true
	}
	// Redirect wrappers carry the target URL-encoded in a query parameter.
	return strings.HasPrefix(href, "/url?") && strings.Contains(href, escapedMarker)
}

// Cascade applies the strategies in order and returns the first non-empty
// candidate set, along with the name of the strategy that produced it.
func Cascade(doc *goquery.Document, strategies []Strategy) ([]string, string) {
	for _, s := range strategies {
		if candidates := s.Candidates(doc); len(candidates) > 0 {
			return candidates, s.Name
		}
	}
	return nil, ""
}
