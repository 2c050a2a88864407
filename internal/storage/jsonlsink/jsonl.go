package jsonlsink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/FranksOps/prospector/internal/storage"
)

// ensure jsonlSink implements storage.Sink
var _ storage.Sink = (*jsonlSink)(nil)

// jsonlSink appends profile rows as JSON lines. Like the CSV sink, the file
// is re-read on every Append so rows written by earlier runs are never
// duplicated, and nothing is held open between appends.
type jsonlSink struct {
	mu   sync.Mutex
	path string
}

// row is the serialized shape of one record. Field names mirror the CSV
// schema so the two formats stay interchangeable downstream.
type row struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
	About string `json:"about"`
	URL   string `json:"url"`
}

// New creates a JSON-lines-backed storage.Sink at the given path.
func New(path string) (storage.Sink, error) {
	if path == "" {
		return nil, errors.New("jsonl sink path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create sink directory: %w", err)
		}
	}
	return &jsonlSink{path: path}, nil
}

func (s *jsonlSink) Append(ctx context.Context, records []storage.ProfileRecord) (storage.AppendStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats storage.AppendStats

	seen, err := readKeys(s.path)
	if err != nil {
		return stats, err
	}

	var fresh []storage.ProfileRecord
	for _, r := range records {
		if r.URL == "" {
			stats.Duplicates++
			continue
		}
		if _, ok := seen[r.URL]; ok {
			stats.Duplicates++
			continue
		}
		seen[r.URL] = struct{}{}
		fresh = append(fresh, r)
	}

	if len(fresh) == 0 {
		return stats, nil
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return stats, fmt.Errorf("open sink file: %w", err)
	}
	defer f.Close()

	for _, r := range fresh {
		line, err := json.Marshal(row{Name: r.Name, Role: r.Role, Email: r.Email, About: r.About, URL: r.URL})
		if err != nil {
			return stats, fmt.Errorf("encode row: %w", err)
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			return stats, fmt.Errorf("write row: %w", err)
		}
		stats.Written++
	}

	return stats, nil
}

func (s *jsonlSink) Close() error {
	// Nothing held open between appends.
	return nil
}

// readKeys rebuilds the set of URLs already present at path. Unparsable
// lines are skipped rather than failing the append: a damaged line cannot
// claim a key, so the worst case is re-writing a row that was half-written.
func readKeys(path string) (map[string]struct{}, error) {
	seen := make(map[string]struct{})

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return seen, nil
		}
		return nil, fmt.Errorf("open sink file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r row
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		if r.URL != "" {
			seen[r.URL] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sink file: %w", err)
	}

	return seen, nil
}
