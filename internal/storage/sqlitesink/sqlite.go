package sqlitesink

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FranksOps/prospector/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteSink implements storage.Sink
var _ storage.Sink = (*sqliteSink)(nil)

type sqliteSink struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	url TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	email TEXT NOT NULL,
	about TEXT NOT NULL
);
`

// New creates a SQLite-backed storage.Sink. The url primary key carries the
// at-most-once-per-key guarantee, so unlike the CSV sink there is no separate
// existing-keys scan; the insert itself is the membership test.
func New(dsn string) (storage.Sink, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite sink: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create profiles table: %w", err)
	}

	return &sqliteSink{db: db}, nil
}

func (s *sqliteSink) Append(ctx context.Context, records []storage.ProfileRecord) (storage.AppendStats, error) {
	var stats storage.AppendStats

	const insert = `
	INSERT INTO profiles (url, name, role, email, about)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (url) DO NOTHING
	`

	for _, r := range records {
		if r.URL == "" {
			stats.Duplicates++
			continue
		}
		res, err := s.db.ExecContext(ctx, insert, r.URL, r.Name, r.Role, r.Email, r.About)
		if err != nil {
			return stats, fmt.Errorf("insert profile %s: %w", r.URL, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return stats, fmt.Errorf("rows affected: %w", err)
		}
		if n > 0 {
			stats.Written++
		} else {
			stats.Duplicates++
		}
	}

	return stats, nil
}

func (s *sqliteSink) Close() error {
	return s.db.Close()
}
