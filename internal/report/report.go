// Package report renders the end-of-run summary in text, JSON, and HTML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"
)

// Summary contains aggregated metrics about a completed discovery run.
type Summary struct {
	RunID         string        `json:"run_id"`
	Query         string        `json:"query"`
	PagesSearched int           `json:"pages_searched"`
	Discovered    int           `json:"discovered"`
	Batches       int           `json:"batches"`
	Processed     int           `json:"processed"`
	Written       int           `json:"written"`
	Duplicates    int           `json:"duplicates"`
	FetchErrors   int           `json:"fetch_errors"`
	ExtractErrors int           `json:"extract_errors"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Duration      time.Duration `json:"duration"`
}

// Finish stamps the end time and derives the duration.
func (s *Summary) Finish(end time.Time) {
	s.EndTime = end
	s.Duration = end.Sub(s.StartTime)
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Prospector Run Summary
----------------------
Run:            {{.RunID}}
Query:          {{.Query}}
Time:           {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:       {{.Duration}}

Pages Searched: {{.PagesSearched}}
Discovered:     {{.Discovered}} profiles in {{.Batches}} batches
Processed:      {{.Processed}}
Written:        {{.Written}} new rows
Duplicates:     {{.Duplicates}}

Fetch Errors:   {{.FetchErrors}}
Extract Errors: {{.ExtractErrors}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse text template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render text summary: %w", err)
	}
	return nil
}

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Prospector Run Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
</style>
</head>
<body>
  <h1>Prospector Run Report</h1>
  <p><strong>Run:</strong> {{.RunID}}</p>
  <p><strong>Query:</strong> {{.Query}}</p>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Discovered</div>
    <div class="stat-val">{{.Discovered}}</div>
  </div>
  <div class="stat-card">
    <div>Written</div>
    <div class="stat-val">{{.Written}}</div>
  </div>
  <div class="stat-card">
    <div>Duplicates</div>
    <div class="stat-val">{{.Duplicates}}</div>
  </div>
  <div class="stat-card">
    <div>Errors</div>
    <div class="stat-val" style="color: {{if gt (add .FetchErrors .ExtractErrors) 0}}red{{else}}green{{end}};">{{add .FetchErrors .ExtractErrors}}</div>
  </div>
</body>
</html>
`
	t, err := template.New("htmlReport").Funcs(template.FuncMap{
		"add": func(a, b int) int { return a + b },
	}).Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("parse html template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}
