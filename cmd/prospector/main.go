// Command prospector discovers public profile pages for a role and country,
// extracts structured contact records from them, and appends the results to
// a durable sink.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FranksOps/prospector/internal/browser"
	"github.com/FranksOps/prospector/internal/extract"
	"github.com/FranksOps/prospector/internal/fingerprint"
	"github.com/FranksOps/prospector/internal/metrics"
	"github.com/FranksOps/prospector/internal/pipeline"
	"github.com/FranksOps/prospector/internal/report"
	"github.com/FranksOps/prospector/internal/serp"
	"github.com/FranksOps/prospector/internal/storage"
	"github.com/FranksOps/prospector/internal/storage/csvsink"
	"github.com/FranksOps/prospector/internal/storage/jsonlsink"
	"github.com/FranksOps/prospector/internal/storage/pgsink"
	"github.com/FranksOps/prospector/internal/storage/sqlitesink"
	"github.com/FranksOps/prospector/pkg/proxy"
	"github.com/FranksOps/prospector/pkg/ratelimit"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var flags struct {
	role        string
	country     string
	pages       int
	perPage     int
	batchSize   int
	output      string
	sink        string
	dsn         string
	engine      string
	fingerprint string
	session     string
	proxies     string
	rps         float64
	metricsAddr string
	reportAs    string
	model       string
	verbose     bool
}

var rootCmd = &cobra.Command{
	Use:   "prospector",
	Short: "prospector finds public profile pages and extracts contact records from them.",
	RunE:  run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.role, "role", "", "job role to search for (required)")
	f.StringVar(&flags.country, "country", "", "country to search in (required)")
	f.IntVar(&flags.pages, "pages", 3, "search result pages to walk")
	f.IntVar(&flags.perPage, "per-page", 10, "result offset step between pages")
	f.IntVar(&flags.batchSize, "batch-size", 10, "profiles processed per batch")
	f.StringVar(&flags.output, "output", "leads.csv", "output path for the csv or jsonl sink")
	f.StringVar(&flags.sink, "sink", "csv", "sink backend: csv, jsonl, sqlite, or postgres")
	f.StringVar(&flags.dsn, "dsn", "", "connection string for the sqlite or postgres sink")
	f.StringVar(&flags.engine, "engine", "chrome-headless", "render engine: chrome, chrome-headless, or static")
	f.StringVar(&flags.fingerprint, "fingerprint", "", "TLS fingerprint for the static engine: chrome, firefox, safari, go, or random")
	f.StringVar(&flags.session, "session", "linkedin_session.json", "path to the authenticated session state file")
	f.StringVar(&flags.proxies, "proxies", "", "path to a proxy list, one url per line (static engine)")
	f.Float64Var(&flags.rps, "rps", 0.5, "request rate ceiling for the static engine, requests per second")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "listen address for prometheus metrics, empty disables")
	f.StringVar(&flags.reportAs, "report", "text", "run summary format: text, json, or html")
	f.StringVar(&flags.model, "model", extract.DefaultModel, "gemini model for extraction")
	f.BoolVar(&flags.verbose, "verbose", false, "enable debug logging")
	_ = rootCmd.MarkFlagRequired("role")
	_ = rootCmd.MarkFlagRequired("country")
}

func run(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if flags.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := browser.ParseEngine(flags.engine)
	if err != nil {
		return err
	}

	profile, err := fingerprint.ParseProfile(flags.fingerprint)
	if err != nil {
		return err
	}

	opts := browser.Options{
		Engine:      engine,
		Fingerprint: profile,
		SessionPath: flags.session,
	}
	if engine == browser.EngineStatic && flags.rps > 0 {
		limiter := ratelimit.NewLimiter(flags.rps, 0.25)
		defer limiter.Stop()
		opts.Limiter = limiter
	}
	if flags.proxies != "" {
		pool := proxy.NewPool(proxy.Config{})
		if err := pool.LoadFile(flags.proxies); err != nil {
			return fmt.Errorf("load proxies: %w", err)
		}
		opts.ProxyPool = pool
	}

	sink, err := openSink(ctx)
	if err != nil {
		return err
	}
	defer sink.Close()

	extractor, err := extract.NewGemini(ctx, extract.GeminiConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		Model:   flags.model,
		Retries: 2,
		Backoff: 2 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("set up extractor: %w", err)
	}

	provider := serp.NewGoogle(browser.Open, opts, serp.DefaultGoogleConfig(), logger)

	cfg := pipeline.Config{
		Role:        flags.role,
		Country:     flags.country,
		Pages:       flags.pages,
		PerPage:     flags.perPage,
		BatchSize:   flags.batchSize,
		SessionPath: flags.session,
	}
	p := pipeline.New(cfg, provider, browser.Open, opts, extractor, sink, logger)

	var srv *metrics.Server
	if flags.metricsAddr != "" {
		srv = metrics.Start(flags.metricsAddr)
		logger.Info("metrics listening", "addr", flags.metricsAddr)
	}

	g, gctx := errgroup.WithContext(ctx)
	var summary report.Summary
	g.Go(func() error {
		var err error
		summary, err = p.Run(gctx)
		return err
	})
	runErr := g.Wait()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", "error", err)
		}
	}

	if err := writeSummary(summary); err != nil {
		logger.Warn("write summary", "error", err)
	}
	return runErr
}

func openSink(ctx context.Context) (storage.Sink, error) {
	switch flags.sink {
	case "csv":
		return csvsink.New(flags.output)
	case "jsonl":
		out := flags.output
		if out == "leads.csv" {
			out = "leads.jsonl"
		}
		return jsonlsink.New(out)
	case "sqlite":
		dsn := flags.dsn
		if dsn == "" {
			dsn = "leads.db"
		}
		return sqlitesink.New(dsn)
	case "postgres":
		if flags.dsn == "" {
			return nil, fmt.Errorf("the postgres sink requires --dsn")
		}
		return pgsink.New(ctx, flags.dsn)
	}
	return nil, fmt.Errorf("unknown sink backend %q (valid: csv, jsonl, sqlite, postgres)", flags.sink)
}

func writeSummary(summary report.Summary) error {
	switch flags.reportAs {
	case "json":
		return report.WriteJSON(os.Stdout, summary)
	case "html":
		return report.WriteHTML(os.Stdout, summary)
	default:
		return report.WriteText(os.Stdout, summary)
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
