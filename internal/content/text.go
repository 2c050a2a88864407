package content

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMaxLines bounds the number of text snippets handed to extraction.
// Profile pages carry enormous amounts of boilerplate below the fold; the
// useful fields live in the first screenful of structural elements.
const DefaultMaxLines = 100

// Lines extracts up to max non-empty text fragments from the page's
// structural elements (h1, span, div) in document order. max <= 0 falls back
// to DefaultMaxLines.
func Lines(html string, max int) ([]string, error) {
	if max <= 0 {
		max = DefaultMaxLines
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page content: %w", err)
	}

	lines := make([]string, 0, max)
	doc.Find("h1, span, div").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			lines = append(lines, text)
		}
		return len(lines) < max
	})

	return lines, nil
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// FirstEmail returns the first email-shaped token found in the given lines,
// or "" if none is present. This is an observability hint only; whether an
// address counts as "found" is the extraction capability's call.
func FirstEmail(lines []string) string {
	for _, line := range lines {
		if m := emailPattern.FindString(line); m != "" {
			return m
		}
	}
	return ""
}
