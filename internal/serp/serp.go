package serp

import "context"

// Provider abstracts a search engine that can discover profile page URLs for
// a query. Implementations may scrape result pages, call official APIs, or
// anything else; the pipeline only cares about the normalized identifiers
// that come back. Duplicates across result pages are collapsed before
// returning.
type Provider interface {
	Discover(ctx context.Context, query string, pages, perPage int) ([]string, error)
}
