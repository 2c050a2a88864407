package pgsink

import (
	"context"
	"fmt"

	"github.com/FranksOps/prospector/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure pgSink implements storage.Sink
var _ storage.Sink = (*pgSink)(nil)

type pgSink struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	url TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	about TEXT NOT NULL DEFAULT ''
);
`

// New creates a Postgres-backed storage.Sink. Deduplication rides on the url
// primary key, which holds even when several processes append concurrently.
func New(ctx context.Context, dsn string) (storage.Sink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres sink: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres sink: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create profiles table: %w", err)
	}

	return &pgSink{pool: pool}, nil
}

func (s *pgSink) Append(ctx context.Context, records []storage.ProfileRecord) (storage.AppendStats, error) {
	var stats storage.AppendStats

	const insert = `
	INSERT INTO profiles (url, name, role, email, about)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (url) DO NOTHING
	`

	for _, r := range records {
		if r.URL == "" {
			stats.Duplicates++
			continue
		}
		tag, err := s.pool.Exec(ctx, insert, r.URL, r.Name, r.Role, r.Email, r.About)
		if err != nil {
			return stats, fmt.Errorf("insert profile %s: %w", r.URL, err)
		}
		if tag.RowsAffected() > 0 {
			stats.Written++
		} else {
			stats.Duplicates++
		}
	}

	return stats, nil
}

func (s *pgSink) Close() error {
	s.pool.Close()
	return nil
}
