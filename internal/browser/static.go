package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/FranksOps/prospector/internal/fingerprint"
	"github.com/FranksOps/prospector/pkg/httpclient"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// staticRenderer fetches pages over a TLS-fingerprinted HTTP client. No
// JavaScript executes, so it only suits surfaces that render server-side,
// but it avoids the cost and footprint of a real browser.
type staticRenderer struct {
	opts    Options
	client  *httpclient.Client
	session *SessionState
}

func newStatic(opts Options) (*staticRenderer, error) {
	if opts.Fingerprint == "" {
		opts.Fingerprint = fingerprint.DefaultProfile
	}

	// The proxy function reads from the request context so the pool can
	// rotate per request without mutating the shared transport.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(opts.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("setup transport: %w", err)
	}

	// Browser-shaped Accept headers ride on every fetch; the User-Agent and
	// Cookie headers rotate per request and are set at render time.
	header := http.Header{}
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	header.Set("Accept-Language", "en-US,en;q=0.5")

	client, err := httpclient.New(httpclient.Config{
		Timeout:      opts.Timeout,
		UseCookieJar: true,
		Header:       header,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	r := &staticRenderer{opts: opts, client: client}

	if opts.SessionPath != "" {
		session, err := LoadSession(opts.SessionPath)
		if err != nil {
			return nil, err
		}
		r.session = session
	}

	return r, nil
}

func (r *staticRenderer) Render(ctx context.Context, target string) (*RenderResult, error) {
	if r.opts.Limiter != nil {
		if err := r.opts.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var activeProxy *url.URL
	if r.opts.ProxyPool != nil {
		activeProxy = r.opts.ProxyPool.Next()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if activeProxy != nil {
		req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
	}

	req.Header.Set("User-Agent", r.opts.UAPool.GetSequential())
	if r.session != nil {
		if cookie := r.session.CookieHeader(req.URL.Hostname()); cookie != "" {
			req.Header.Set("Cookie", cookie)
		}
	}

	resp, err := r.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			_ = r.opts.ProxyPool.MarkFailure(activeProxy)
		}
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = r.opts.ProxyPool.MarkSuccess(activeProxy)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", target, err)
	}

	return &RenderResult{URL: target, Status: resp.StatusCode, HTML: string(body)}, nil
}

func (r *staticRenderer) Close() error {
	return nil
}
