// Package pipeline orchestrates a full discovery run: build the search
// query, discover profile identifiers, partition them into batches, then
// render, extract, and persist each batch in turn. The run advances through
// an explicit state machine so a failure in one stage degrades that stage
// only, never the whole run, except for the fatal preconditions checked up
// front.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/prospector/internal/batch"
	"github.com/FranksOps/prospector/internal/browser"
	"github.com/FranksOps/prospector/internal/content"
	"github.com/FranksOps/prospector/internal/extract"
	"github.com/FranksOps/prospector/internal/metrics"
	"github.com/FranksOps/prospector/internal/query"
	"github.com/FranksOps/prospector/internal/report"
	"github.com/FranksOps/prospector/internal/serp"
	"github.com/FranksOps/prospector/internal/storage"
	"github.com/FranksOps/prospector/pkg/ratelimit"
	"github.com/google/uuid"
)

// Config holds the per-run parameters.
type Config struct {
	Role    string
	Country string

	// Pages is how many search result pages discovery walks; PerPage is the
	// result offset step between them.
	Pages   int
	PerPage int

	// BatchSize bounds how many profiles are processed per batch.
	BatchSize int

	// SessionPath points at the authenticated session state required for
	// profile pages. It is verified before the run starts; a missing or
	// unreadable session aborts the run.
	SessionPath string

	// ProfileDelay paces fetches within a batch.
	ProfileDelay time.Duration

	// MaxLines caps how much page text is handed to the extractor.
	MaxLines int
}

func (c *Config) applyDefaults() {
	if c.Pages <= 0 {
		c.Pages = 3
	}
	if c.PerPage <= 0 {
		c.PerPage = 10
	}
	if c.BatchSize <= 0 {
		c.BatchSize = batch.DefaultSize
	}
	if c.ProfileDelay <= 0 {
		c.ProfileDelay = time.Second
	}
	if c.MaxLines <= 0 {
		c.MaxLines = content.DefaultMaxLines
	}
}

// state enumerates the orchestrator's stages.
type state int

const (
	stateBuildQuery state = iota
	stateDiscover
	stateMakeBatches
	stateNextBatch
	stateProcessBatch
	statePersist
	stateDone
)

// progress is the run's accumulated working set, threaded through the state
// machine instead of package-level mutable state.
type progress struct {
	query   string
	ids     []string
	batches [][]string
	next    int
	current []storage.ProfileRecord
	summary report.Summary
}

// Pipeline wires the stages together. Every collaborator is an interface or
// function value so runs are fully testable without a browser, a model, or
// a filesystem.
type Pipeline struct {
	cfg       Config
	provider  serp.Provider
	open      browser.OpenFunc
	opts      browser.Options
	extractor extract.Extractor
	sink      storage.Sink
	logger    *slog.Logger
}

// New assembles a pipeline. A nil open falls back to the real engines and a
// nil logger to slog.Default.
func New(cfg Config, provider serp.Provider, open browser.OpenFunc, opts browser.Options, extractor extract.Extractor, sink storage.Sink, logger *slog.Logger) *Pipeline {
	cfg.applyDefaults()
	if open == nil {
		open = browser.Open
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:       cfg,
		provider:  provider,
		open:      open,
		opts:      opts,
		extractor: extractor,
		sink:      sink,
		logger:    logger,
	}
}

// Run executes one complete discovery run and returns its summary. The
// summary is best-effort valid even when an error is returned.
func (p *Pipeline) Run(ctx context.Context) (report.Summary, error) {
	pr := &progress{
		summary: report.Summary{
			RunID:     uuid.NewString(),
			StartTime: time.Now(),
		},
	}
	defer func() { pr.summary.Finish(time.Now()) }()

	// Profile pages require the authenticated session, so its absence is
	// checked up front instead of being discovered batches deep.
	if err := browser.VerifySession(p.cfg.SessionPath); err != nil {
		return pr.summary, fmt.Errorf("session precondition: %w", err)
	}

	log := p.logger.With("run_id", pr.summary.RunID)

	for st := stateBuildQuery; st != stateDone; {
		if err := ctx.Err(); err != nil {
			return pr.summary, err
		}

		switch st {
		case stateBuildQuery:
			pr.query = query.Build(p.cfg.Role, p.cfg.Country)
			pr.summary.Query = pr.query
			log.Info("query built", "query", pr.query)
			st = stateDiscover

		case stateDiscover:
			ids, err := p.provider.Discover(ctx, pr.query, p.cfg.Pages, p.cfg.PerPage)
			if err != nil {
				return pr.summary, fmt.Errorf("discover profiles: %w", err)
			}
			pr.ids = ids
			pr.summary.PagesSearched = p.cfg.Pages
			pr.summary.Discovered = len(pr.ids)
			log.Info("discovery complete", "profiles", len(pr.ids))
			st = stateMakeBatches

		case stateMakeBatches:
			pr.batches = batch.Partition(pr.ids, p.cfg.BatchSize)
			pr.summary.Batches = len(pr.batches)
			st = stateNextBatch

		case stateNextBatch:
			if pr.next >= len(pr.batches) {
				st = stateDone
				break
			}
			log.Info("starting batch", "batch", pr.next+1, "of", len(pr.batches), "size", len(pr.batches[pr.next]))
			st = stateProcessBatch

		case stateProcessBatch:
			pr.current = p.processBatch(ctx, log, pr.batches[pr.next], &pr.summary)
			st = statePersist

		case statePersist:
			stats, err := p.sink.Append(ctx, pr.current)
			if err != nil {
				return pr.summary, fmt.Errorf("persist batch %d: %w", pr.next+1, err)
			}
			metrics.RecordAppend(stats.Written, stats.Duplicates)
			pr.summary.Written += stats.Written
			pr.summary.Duplicates += stats.Duplicates
			log.Info("batch persisted", "batch", pr.next+1, "written", stats.Written, "duplicates", stats.Duplicates)
			pr.next++
			st = stateNextBatch
		}
	}

	return pr.summary, nil
}

// processBatch renders and extracts every identifier in the batch under a
// single rendering context. The output always has the same length and order
// as the input: failures degrade to a record that carries only the URL, so
// the identifier is still accounted for downstream.
func (p *Pipeline) processBatch(ctx context.Context, log *slog.Logger, ids []string, sum *report.Summary) []storage.ProfileRecord {
	records := make([]storage.ProfileRecord, len(ids))
	for i, id := range ids {
		records[i] = storage.ProfileRecord{URL: id}
	}

	r, err := p.open(ctx, p.opts)
	if err != nil {
		log.Error("batch rendering context unavailable", "error", err)
		sum.FetchErrors += len(ids)
		sum.Processed += len(ids)
		for range ids {
			metrics.ProfilesProcessedTotal.WithLabelValues("fetch_error").Inc()
		}
		return records
	}
	defer r.Close()

	for i, id := range ids {
		if i > 0 {
			if err := ratelimit.Sleep(ctx, p.cfg.ProfileDelay, p.cfg.ProfileDelay); err != nil {
				log.Warn("batch interrupted", "remaining", len(ids)-i)
				sum.Processed += len(ids) - i
				return records
			}
		}
		records[i] = p.processProfile(ctx, log, r, id, sum)
		sum.Processed++
	}
	return records
}

func (p *Pipeline) processProfile(ctx context.Context, log *slog.Logger, r browser.Renderer, id string, sum *report.Summary) storage.ProfileRecord {
	empty := storage.ProfileRecord{URL: id}

	start := time.Now()
	res, err := r.Render(ctx, id)
	metrics.ObserveRender("batch", time.Since(start))
	if err != nil || res.Status/100 != 2 {
		if err == nil {
			err = fmt.Errorf("unexpected status %d", res.Status)
		}
		log.Warn("profile fetch failed", "url", id, "error", err)
		metrics.ProfilesProcessedTotal.WithLabelValues("fetch_error").Inc()
		sum.FetchErrors++
		return empty
	}

	lines, err := res.Lines(p.cfg.MaxLines)
	if err != nil || len(lines) == 0 {
		if err != nil {
			log.Warn("profile text unreadable", "url", id, "error", err)
		}
		metrics.ProfilesProcessedTotal.WithLabelValues("empty").Inc()
		return empty
	}

	rec, err := p.extractor.Extract(ctx, id, lines)
	if err != nil {
		log.Warn("profile extraction failed", "url", id, "error", err)
		metrics.ProfilesProcessedTotal.WithLabelValues("extract_error").Inc()
		sum.ExtractErrors++
		return empty
	}

	metrics.ProfilesProcessedTotal.WithLabelValues("extracted").Inc()
	return extract.Reconcile(rec, id)
}
