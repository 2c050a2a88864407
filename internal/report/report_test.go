package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func sampleSummary() Summary {
	start := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	s := Summary{
		RunID:         "8b7f2a1e-0000-4000-8000-000000000001",
		Query:         `site:linkedin.com/in "DevOps Engineer" "@gmail.com" "Germany"`,
		PagesSearched: 3,
		Discovered:    24,
		Batches:       3,
		Processed:     24,
		Written:       20,
		Duplicates:    4,
		FetchErrors:   1,
		ExtractErrors: 2,
		StartTime:     start,
	}
	s.Finish(start.Add(5 * time.Minute))
	return s
}

func TestFinishDerivesDuration(t *testing.T) {
	s := sampleSummary()
	if s.Duration != 5*time.Minute {
		t.Errorf("expected 5m duration, got %v", s.Duration)
	}
	if s.EndTime.Before(s.StartTime) {
		t.Errorf("end time precedes start time")
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleSummary()); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Prospector Run Summary",
		"DevOps Engineer",
		"24 profiles in 3 batches",
		"20 new rows",
		"Duplicates:     4",
		"Fetch Errors:   1",
		"Extract Errors: 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text summary missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleSummary()); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var decoded Summary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("summary JSON does not round-trip: %v", err)
	}
	if decoded.Discovered != 24 || decoded.Written != 20 {
		t.Errorf("unexpected decoded summary: %+v", decoded)
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, sampleSummary()); err != nil {
		t.Fatalf("WriteHTML failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<title>Prospector Run Report</title>") {
		t.Errorf("html report missing title:\n%s", out)
	}
	// FetchErrors + ExtractErrors rendered as a combined count.
	if !strings.Contains(out, ">3</div>") {
		t.Errorf("html report missing combined error count:\n%s", out)
	}
}
