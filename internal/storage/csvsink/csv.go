package csvsink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/FranksOps/prospector/internal/storage"
)

// ensure csvSink implements storage.Sink
var _ storage.Sink = (*csvSink)(nil)

// csvSink appends profile rows to a header-first CSV file. The file is
// re-read on every Append so that rows written by earlier runs (or by
// anything else touching the file) are never duplicated.
type csvSink struct {
	mu   sync.Mutex
	path string
}

// New creates a CSV-backed storage.Sink at the given path. The file itself
// is only touched at append time; an existing file with a foreign header is
// left alone and writes are redirected to a schema-versioned sibling.
func New(path string) (storage.Sink, error) {
	if path == "" {
		return nil, errors.New("csv sink path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create sink directory: %w", err)
		}
	}
	return &csvSink{path: path}, nil
}

func (s *csvSink) Append(ctx context.Context, records []storage.ProfileRecord) (storage.AppendStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats storage.AppendStats

	path, err := s.resolvePath()
	if err != nil {
		return stats, err
	}

	seen, exists, err := readKeys(path)
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
		// Guard against the same URL appearing twice within one call.
		seen[r.URL] = struct{}{}
		fresh = append(fresh, r)
	}

	if len(fresh) == 0 {
		return stats, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return stats, fmt.Errorf("open sink file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if !exists {
		if err := w.Write(storage.Schema); err != nil {
			return stats, fmt.Errorf("write header: %w", err)
		}
	}
	for _, r := range fresh {
		if err := w.Write(r.Row()); err != nil {
			return stats, fmt.Errorf("write row: %w", err)
		}
		stats.Written++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return stats, fmt.Errorf("flush sink file: %w", err)
	}

	return stats, nil
}

func (s *csvSink) Close() error {
	// Nothing held open between appends.
	return nil
}

// resolvePath checks the existing file's header against the current schema.
// A mismatch means the file belongs to an older column layout; rather than
// corrupt or silently upgrade it, writes go to a versioned sibling path.
func (s *csvSink) resolvePath() (string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s.path, nil
		}
		return "", fmt.Errorf("open sink file: %w", err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err != nil {
		if err == io.EOF {
			// Empty file, safe to adopt.
			return s.path, nil
		}
		return "", fmt.Errorf("read sink header: %w", err)
	}

	if headerMatches(header) {
		return s.path, nil
	}
	return versionedPath(s.path), nil
}

func headerMatches(header []string) bool {
	if len(header) != len(storage.Schema) {
		return false
	}
	for i, col := range storage.Schema {
		if header[i] != col {
			return false
		}
	}
	return true
}

// versionedPath derives the alternate location used when the primary file
// carries an incompatible header, e.g. leads.csv -> leads_v2.csv.
func versionedPath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return stem + "_v2" + ext
}

// readKeys rebuilds the set of URLs already present at path. It reports
// whether the file exists so the caller knows to write a header first.
func readKeys(path string) (map[string]struct{}, bool, error) {
	seen := make(map[string]struct{})

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return seen, false, nil
		}
		return nil, false, fmt.Errorf("open sink file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			// Exists but empty; Append must still write the header.
			return seen, false, nil
		}
		return nil, false, fmt.Errorf("read sink header: %w", err)
	}

	urlCol := len(storage.Schema) - 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("read sink row: %w", err)
		}
		if len(row) <= urlCol {
			continue // skip malformed rows
		}
		if row[urlCol] != "" {
			seen[row[urlCol]] = struct{}{}
		}
	}

	return seen, true, nil
}
