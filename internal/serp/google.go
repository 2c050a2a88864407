package serp

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/prospector/internal/browser"
	"github.com/FranksOps/prospector/internal/bypass"
	"github.com/FranksOps/prospector/internal/metrics"
	"github.com/FranksOps/prospector/pkg/ratelimit"
	"github.com/PuerkitoBio/goquery"
)

// ensure Google implements Provider
var _ Provider = (*Google)(nil)

// GoogleConfig tunes the discovery loop. The retry and delay values are
// policy, tuned against a live third-party surface; correctness only needs
// retry-then-skip and a polite delay to be present.
type GoogleConfig struct {
	// Retries is the number of navigation attempts per result page.
	Retries int
	// Backoff is the initial wait between attempts; it doubles each retry.
	Backoff time.Duration
	// DelayMin/DelayMax bound the randomized politeness delay between
	// result pages.
	DelayMin time.Duration
	DelayMax time.Duration
	// Strategies overrides the selector cascade. Nil uses the default.
	Strategies []Strategy
}

// DefaultGoogleConfig returns the tuning used in production runs.
func DefaultGoogleConfig() GoogleConfig {
	return GoogleConfig{
		Retries:  3,
		Backoff:  2 * time.Second,
		DelayMin: 2 * time.Second,
		DelayMax: 5 * time.Second,
	}
}

// Google discovers profile URLs by paginating Google's result pages through
// a rendering context. Single-page failures are absorbed: a page that cannot
// be fetched or parsed contributes nothing, and discovery moves on.
type Google struct {
	open   browser.OpenFunc
	opts   browser.Options
	cfg    GoogleConfig
	logger *slog.Logger
}

// NewGoogle creates a Google discovery provider. The rendering context is
// opened once per Discover call and closed before it returns.
func NewGoogle(open browser.OpenFunc, opts browser.Options, cfg GoogleConfig, logger *slog.Logger) *Google {
	if open == nil {
		open = browser.Open
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 2 * time.Second
	}
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = DefaultStrategies()
	}
	return &Google{open: open, opts: opts, cfg: cfg, logger: logger}
}

// SearchURL builds the results URL for a query at the given offset.
func SearchURL(q string, offset int) string {
	return fmt.Sprintf("https://www.google.com/search?q=%s&start=%d", url.QueryEscape(q), offset)
}

func (g *Google) Discover(ctx context.Context, q string, pages, perPage int) ([]string, error) {
	if pages <= 0 {
		pages = 1
	}
	if perPage <= 0 {
		perPage = 10
	}

	r, err := g.open(ctx, g.opts)
	if err != nil {
		// The one fatal case: no rendering context means no forward progress.
		return nil, fmt.Errorf("open rendering context: %w", err)
	}
	defer r.Close()

	found := make(map[string]struct{})
	var ordered []string

	for page := 0; page < pages; page++ {
		if page > 0 {
			// Politeness delay between page fetches; never skipped.
			if err := ratelimit.Sleep(ctx, g.cfg.DelayMin, g.cfg.DelayMax); err != nil {
				return ordered, err
			}
		}

		offset := page * perPage
		target := SearchURL(q, offset)
		g.logger.Info("fetching search page", "page", page+1, "pages", pages, "offset", offset)

		res, err := g.renderWithRetry(ctx, r, target)
		if err != nil {
			if ctx.Err() != nil {
				return ordered, ctx.Err()
			}
			g.logger.Warn("search page failed after retries, skipping", "page", page+1, "error", err)
			metrics.SearchPagesTotal.WithLabelValues("failed").Inc()
			continue
		}

		if blocked, source := bypass.Analyze(res.Status, res.HTML, bypass.DefaultDetectors()); blocked {
			g.logger.Warn("block detected on search page", "page", page+1, "source", source)
			metrics.BlockDetectionsTotal.WithLabelValues(source).Inc()
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
		if err != nil {
			g.logger.Warn("unparsable search page, skipping", "page", page+1, "error", err)
			metrics.SearchPagesTotal.WithLabelValues("failed").Inc()
			continue
		}

		candidates, strategy := Cascade(doc, g.cfg.Strategies)
		if len(candidates) == 0 {
			// Zero yield is not an error, just zero contribution.
			g.logger.Warn("no result links on page", "page", page+1)
			metrics.SearchPagesTotal.WithLabelValues("empty").Inc()
			continue
		}

		added := 0
		for _, href := range candidates {
			id, ok := Normalize(href)
			if !ok {
				continue
			}
			if _, dup := found[id]; dup {
				continue
			}
			found[id] = struct{}{}
			ordered = append(ordered, id)
			added++
		}

		g.logger.Info("search page processed",
			"page", page+1, "strategy", strategy,
			"candidates", len(candidates), "new", added)
		metrics.SearchPagesTotal.WithLabelValues("ok").Inc()
	}

	g.logger.Info("discovery complete", "profiles", len(ordered))
	return ordered, nil
}

// renderWithRetry renders the target with bounded retries and exponential
// backoff on transient failures (navigation errors, non-success statuses).
func (g *Google) renderWithRetry(ctx context.Context, r browser.Renderer, target string) (*browser.RenderResult, error) {
	backoff := g.cfg.Backoff
	var lastErr error

	for attempt := 1; attempt <= g.cfg.Retries; attempt++ {
		start := time.Now()
		res, err := r.Render(ctx, target)
		metrics.ObserveRender("discovery", time.Since(start))

		if err == nil && res.Status/100 == 2 {
			return res, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("status %d", res.Status)
		}

		if attempt < g.cfg.Retries {
			g.logger.Debug("retrying search page", "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return nil, lastErr
}
