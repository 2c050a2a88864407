package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/prospector/internal/content"
	"github.com/FranksOps/prospector/internal/fingerprint"
	"github.com/FranksOps/prospector/pkg/proxy"
	"github.com/FranksOps/prospector/pkg/ratelimit"
	"github.com/FranksOps/prospector/pkg/useragent"
)

// Engine selects the rendering context implementation.
type Engine string

const (
	// EngineChrome drives a visible Chrome instance over the DevTools
	// protocol. JavaScript executes, which some profile pages require.
	EngineChrome Engine = "chrome"
	// EngineChromeHeadless is EngineChrome without a window.
	EngineChromeHeadless Engine = "chrome-headless"
	// EngineStatic fetches raw HTML over a TLS-fingerprinted HTTP client.
	// No JavaScript, but far cheaper and harder to fingerprint as automation
	// at the TLS layer.
	EngineStatic Engine = "static"
)

// ParseEngine validates a user-supplied engine name.
func ParseEngine(s string) (Engine, error) {
	switch Engine(s) {
	case EngineChrome, EngineChromeHeadless, EngineStatic:
		return Engine(s), nil
	case "":
		return EngineChromeHeadless, nil
	}
	return "", fmt.Errorf("unknown render engine %q (valid: chrome, chrome-headless, static)", s)
}

// Options configures a rendering context for the lifetime of one stage.
type Options struct {
	Engine Engine

	// SessionPath points at a storage-state file holding pre-authenticated
	// cookies. Empty means an unauthenticated context.
	SessionPath string

	// UAPool supplies User-Agent strings. Nil falls back to the default pool.
	UAPool *useragent.Pool

	// ProxyPool rotates outbound proxies. Static engine only.
	ProxyPool *proxy.Pool

	// Fingerprint selects the TLS client hello. Static engine only.
	Fingerprint fingerprint.Profile

	// Limiter paces renders. Static engine only; the chrome engines are
	// paced by their callers' politeness delays.
	Limiter *ratelimit.Limiter

	// SettleDelay is how long to wait after navigation for scripts to
	// populate the page. Chrome engines only.
	SettleDelay time.Duration

	// Timeout bounds a single render.
	Timeout time.Duration
}

// RenderResult is the extractable content of one rendered page.
type RenderResult struct {
	URL    string
	Status int
	HTML   string
}

// Lines returns up to max non-empty text snippets from the page's structural
// elements, in document order.
func (r *RenderResult) Lines(max int) ([]string, error) {
	return content.Lines(r.HTML, max)
}

// Renderer is a live rendering context. It is opened once per pipeline stage
// and must be closed before control returns to the orchestrator; the session
// it authenticated with is reused across every Render call in between.
type Renderer interface {
	Render(ctx context.Context, url string) (*RenderResult, error)
	Close() error
}

// OpenFunc opens a rendering context. The pipeline depends on this signature
// rather than on a concrete engine so tests can substitute fakes.
type OpenFunc func(ctx context.Context, opts Options) (Renderer, error)

// Open creates a Renderer for the configured engine. Failure here is fatal
// to the run: a pipeline that cannot render anything cannot make progress.
func Open(ctx context.Context, opts Options) (Renderer, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UAPool == nil {
		opts.UAPool = useragent.NewPool(nil)
	}

	switch opts.Engine {
	case EngineStatic:
		return newStatic(opts)
	case EngineChrome, EngineChromeHeadless, "":
		return newChrome(ctx, opts)
	}
	return nil, fmt.Errorf("unknown render engine %q", opts.Engine)
}
