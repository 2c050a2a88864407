package storage

import "context"

// Schema is the fixed column layout of the profile sink. The url column is
// the identifier key; a record without it is not addressable and is never
// written.
var Schema = []string{"name", "role", "email", "about", "url"}

// ProfileRecord is one structured output row for a single profile page.
// Empty string is the explicit "absent" value for every field; a failed
// extraction still yields a record with the URL populated.
type ProfileRecord struct {
	Name  string
	Role  string
	Email string
	About string
	URL   string
}

// Row returns the record's values in Schema column order.
func (r ProfileRecord) Row() []string {
	return []string{r.Name, r.Role, r.Email, r.About, r.URL}
}

// AppendStats reports the outcome of one Append call.
type AppendStats struct {
	// Written is the number of rows newly persisted.
	Written int
	// Duplicates is the number of records skipped because their URL was
	// already present in the sink, or because they carried no URL at all.
	Duplicates int
}

// Sink is an append-only store of profile records keyed by URL. Implementations
// must guarantee that two records with the same URL are never both present
// across all Append calls over the sink's lifetime, re-deriving the set of
// existing keys from storage on every call rather than trusting run state.
type Sink interface {
	Append(ctx context.Context, records []ProfileRecord) (AppendStats, error)
	Close() error
}
