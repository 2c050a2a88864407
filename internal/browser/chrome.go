package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/FranksOps/prospector/pkg/useragent"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// chromeRenderer drives a single Chrome instance over the DevTools protocol.
// The browser lives for the renderer's lifetime; every Render call reuses it
// and the session cookies injected at open time.
type chromeRenderer struct {
	opts          Options
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

func newChrome(ctx context.Context, opts Options) (*chromeRenderer, error) {
	headless := opts.Engine != EngineChrome

	ua := opts.UAPool.GetRandom()
	if !strings.Contains(ua, "Chrome/") {
		// The announced identity must match the engine actually running.
		ua = useragent.NewChromePool().GetRandom()
	}

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(ua),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	r := &chromeRenderer{
		opts:          opts,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}

	// Prove the browser actually starts before the pipeline commits to it.
	startCtx, cancel := context.WithTimeout(browserCtx, opts.Timeout)
	defer cancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		r.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	if opts.SessionPath != "" {
		session, err := LoadSession(opts.SessionPath)
		if err != nil {
			r.Close()
			return nil, err
		}
		if err := r.injectCookies(session); err != nil {
			r.Close()
			return nil, fmt.Errorf("inject session cookies: %w", err)
		}
	}

	return r, nil
}

// injectCookies loads the captured session into the browser via the network
// domain, so navigations arrive pre-authenticated.
func (r *chromeRenderer) injectCookies(session *SessionState) error {
	if err := chromedp.Run(r.browserCtx, network.Enable()); err != nil {
		return fmt.Errorf("enable network domain: %w", err)
	}

	return chromedp.Run(r.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range session.Cookies {
			p := network.SetCookie(c.Name, c.Value).
				WithDomain(strings.TrimPrefix(c.Domain, ".")).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)

			if c.Expires > 0 {
				exp := time.Unix(int64(c.Expires), 0)
				if exp.After(time.Now()) {
					ts := cdp.TimeSinceEpoch(exp)
					p = p.WithExpires(&ts)
				}
			}

			switch strings.ToLower(c.SameSite) {
			case "strict":
				p = p.WithSameSite(network.CookieSameSiteStrict)
			case "lax":
				p = p.WithSameSite(network.CookieSameSiteLax)
			case "none":
				p = p.WithSameSite(network.CookieSameSiteNone)
			}

			if err := p.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s for %s: %w", c.Name, c.Domain, err)
			}
		}
		return nil
	}))
}

func (r *chromeRenderer) Render(ctx context.Context, url string) (*RenderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	settle := r.opts.SettleDelay
	if settle <= 0 {
		settle = 2 * time.Second
	}

	runCtx, cancel := context.WithTimeout(r.browserCtx, r.opts.Timeout)
	defer cancel()

	var html string
	var status int
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(settle),
		chromedp.OuterHTML("html", &html),
		// The DevTools protocol has no direct "document status" query; the
		// navigation timing entry carries it when available.
		chromedp.Evaluate(`window.performance?.getEntriesByType?.('navigation')?.[0]?.responseStatus || 200`, &status),
	)
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	if html == "" {
		return nil, fmt.Errorf("navigate %s: empty document", url)
	}

	return &RenderResult{URL: url, Status: status, HTML: html}, nil
}

func (r *chromeRenderer) Close() error {
	r.browserCancel()
	r.allocCancel()
	return nil
}
