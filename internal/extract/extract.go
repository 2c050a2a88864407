// Package extract turns the visible text of a profile page into a
// structured record. The canonical implementation delegates to a language
// model; the pipeline only depends on the Extractor interface so tests can
// substitute deterministic fakes.
package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/FranksOps/prospector/internal/storage"
)

// Extractor produces a structured profile record from the text lines
// scraped at url. Implementations return empty strings, not an error, for
// fields they cannot determine; an error means the extraction itself failed
// and the caller decides how to degrade.
type Extractor interface {
	Extract(ctx context.Context, url string, lines []string) (storage.ProfileRecord, error)
}

// payload mirrors the JSON object the model is asked to emit.
type payload struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
	About string `json:"about"`
	URL   string `json:"url"`
}

// DecodeRecord parses a model response into a record. Responses wrapped in
// Markdown code fences are unwrapped first; anything that still fails to
// parse as a JSON object is an error.
func DecodeRecord(raw string) (storage.ProfileRecord, error) {
	var p payload
	if err := json.Unmarshal([]byte(stripFences(raw)), &p); err != nil {
		return storage.ProfileRecord{}, err
	}
	return storage.ProfileRecord{
		Name:  strings.TrimSpace(p.Name),
		Role:  strings.TrimSpace(p.Role),
		Email: strings.TrimSpace(p.Email),
		About: strings.TrimSpace(p.About),
		URL:   strings.TrimSpace(p.URL),
	}, nil
}

// Reconcile pins the record to the identifier that was actually fetched.
// Models occasionally echo a different URL than the one they were shown,
// which would break downstream deduplication.
func Reconcile(rec storage.ProfileRecord, url string) storage.ProfileRecord {
	rec.URL = url
	return rec
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
