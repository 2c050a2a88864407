//go:build integration

package test

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/prospector/internal/browser"
	"github.com/FranksOps/prospector/internal/content"
	"github.com/FranksOps/prospector/internal/pipeline"
	"github.com/FranksOps/prospector/internal/serp"
	"github.com/FranksOps/prospector/internal/storage"
	"github.com/FranksOps/prospector/internal/storage/csvsink"
)

// fakeWeb is a browser.Renderer serving a canned search results page plus a
// profile page per identifier, standing in for both render stages.
type fakeWeb struct {
	serpHTML string
	queryURL string
}

func (f *fakeWeb) Render(ctx context.Context, url string) (*browser.RenderResult, error) {
	if url == f.queryURL {
		return &browser.RenderResult{URL: url, Status: 200, HTML: f.serpHTML}, nil
	}
	name := filepath.Base(url)
	html := fmt.Sprintf(`<html><body>
		<h1>%s</h1>
		<div>Site Reliability Engineer</div>
		<span>Contact: %s@gmail.com</span>
		<div>Keeping the pagers quiet since 2019.</div>
	</body></html>`, name, name)
	return &browser.RenderResult{URL: url, Status: 200, HTML: html}, nil
}

func (f *fakeWeb) Close() error { return nil }

// lineExtractor derives a record from the rendered page text without a model.
type lineExtractor struct{}

func (lineExtractor) Extract(ctx context.Context, url string, lines []string) (storage.ProfileRecord, error) {
	rec := storage.ProfileRecord{URL: url, Email: content.FirstEmail(lines)}
	if len(lines) > 0 {
		rec.Name = lines[0]
	}
	if len(lines) > 1 {
		rec.Role = lines[1]
	}
	return rec, nil
}

func serpFixture(profiles ...string) string {
	html := `<html><body>`
	for _, p := range profiles {
		html += fmt.Sprintf(`<div class="g"><a href=%q><h3>%s</h3></a></div>`, p, filepath.Base(p))
	}
	return html + `</body></html>`
}

func writeSession(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	state := `{"cookies":[{"name":"li_at","value":"tok","domain":".linkedin.com","path":"/","expires":-1}]}`
	if err := os.WriteFile(path, []byte(state), 0600); err != nil {
		t.Fatalf("write session file: %v", err)
	}
	return path
}

func newPipeline(t *testing.T, out string, profiles ...string) *pipeline.Pipeline {
	t.Helper()

	cfg := pipeline.Config{
		Role:         "Site Reliability Engineer",
		Country:      "Netherlands",
		Pages:        1,
		PerPage:      10,
		BatchSize:    2,
		SessionPath:  writeSession(t),
		ProfileDelay: time.Millisecond,
	}

	queryURL := serp.SearchURL(
		`site:linkedin.com/in "Site Reliability Engineer" "@gmail.com" "Netherlands"`, 0)
	web := &fakeWeb{serpHTML: serpFixture(profiles...), queryURL: queryURL}
	open := func(ctx context.Context, opts browser.Options) (browser.Renderer, error) {
		return web, nil
	}

	serpCfg := serp.DefaultGoogleConfig()
	serpCfg.Backoff = time.Millisecond
	serpCfg.DelayMin = time.Millisecond
	serpCfg.DelayMax = 2 * time.Millisecond

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := serp.NewGoogle(open, browser.Options{}, serpCfg, logger)

	sink, err := csvsink.New(out)
	if err != nil {
		t.Fatalf("create csv sink: %v", err)
	}
	t.Cleanup(func() { sink.Close() })

	return pipeline.New(cfg, provider, open, browser.Options{}, lineExtractor{}, sink, logger)
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return rows
}

func TestIntegration_DiscoveryToCSV(t *testing.T) {
	out := filepath.Join(t.TempDir(), "leads.csv")
	p := newPipeline(t, out,
		"https://www.linkedin.com/in/ada",
		"https://www.linkedin.com/in/grace",
		"https://www.linkedin.com/in/alan",
	)

	sum, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("pipeline run failed: %v", err)
	}

	if sum.Discovered != 3 || sum.Batches != 2 || sum.Written != 3 {
		t.Errorf("unexpected summary: %+v", sum)
	}

	rows := readRows(t, out)
	if len(rows) != 4 { // header + 3 records
		t.Fatalf("expected 4 csv rows, got %d: %v", len(rows), rows)
	}

	// Records carry extracted fields and the canonical identifier.
	byURL := make(map[string][]string)
	for _, row := range rows[1:] {
		byURL[row[4]] = row
	}
	ada, ok := byURL["https://www.linkedin.com/in/ada"]
	if !ok {
		t.Fatalf("ada's record missing: %v", rows)
	}
	if ada[0] != "ada" || ada[1] != "Site Reliability Engineer" || ada[2] != "ada@gmail.com" {
		t.Errorf("unexpected record for ada: %v", ada)
	}
}

func TestIntegration_RerunDeduplicates(t *testing.T) {
	out := filepath.Join(t.TempDir(), "leads.csv")
	profiles := []string{
		"https://www.linkedin.com/in/ada",
		"https://www.linkedin.com/in/grace",
	}

	if _, err := newPipeline(t, out, profiles...).Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Second run finds one old profile and one new one.
	sum, err := newPipeline(t, out,
		"https://www.linkedin.com/in/ada",
		"https://www.linkedin.com/in/alan",
	).Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if sum.Written != 1 || sum.Duplicates != 1 {
		t.Errorf("expected 1 written and 1 duplicate on rerun, got %+v", sum)
	}
	if rows := readRows(t, out); len(rows) != 4 { // header + ada + grace + alan
		t.Errorf("expected 4 csv rows after both runs, got %d: %v", len(rows), rows)
	}
}
