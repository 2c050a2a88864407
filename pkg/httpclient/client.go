package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

const (
	// DefaultTimeout bounds a single page fetch end to end.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRedirects covers the hop chains seen on search result and
	// profile pages: tracking wrappers, consent interstitials, and the
	// occasional auth-wall bounce. Anything longer is a loop.
	DefaultMaxRedirects = 5
)

// Config defines the setup for the HTTP Client.
type Config struct {
	// Timeout defaults to DefaultTimeout when zero.
	Timeout time.Duration
	// MaxRedirects defaults to DefaultMaxRedirects when zero. A negative
	// value disables redirect following: the first 3xx is returned as-is.
	MaxRedirects int
	// UseCookieJar keeps server-set cookies across requests. Fetches that
	// carry an authenticated session need this so mid-run cookie refreshes
	// are not silently dropped.
	UseCookieJar bool
	// Header holds defaults applied to every request that does not set the
	// key itself. Per-request values always win.
	Header http.Header
	// Provide a custom Transport, e.g. for proxies or uTLS fingerprinting
	Transport http.RoundTripper
}

// Client wraps a standard http.Client to provide configurable timeouts,
// redirect policies, cookie management, and shared default headers.
type Client struct {
	*http.Client
	header http.Header
}

// New creates a new HTTP client based on the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}

	c := &http.Client{
		Timeout: cfg.Timeout,
	}

	if cfg.MaxRedirects > 0 {
		limit := cfg.MaxRedirects
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return fmt.Errorf("stopped after %d redirects", limit)
			}
			return nil
		}
	} else {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.Jar = jar
	}

	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	}

	return &Client{Client: c, header: cfg.Header}, nil
}

// Do executes an HTTP request. The provided context.Context should control
// the overarching request timeout/cancellation independent of the client
// timeout. Default headers from the configuration fill in any key the
// request left unset.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("request context cannot be nil")
	}

	// Always clone the request with the provided context
	reqWithCtx := req.Clone(ctx)

	for key, values := range c.header {
		if reqWithCtx.Header.Get(key) != "" {
			continue
		}
		for _, v := range values {
			reqWithCtx.Header.Add(key, v)
		}
	}

	resp, err := c.Client.Do(reqWithCtx)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// Get fetches a URL with the client's defaults applied.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.Do(ctx, req)
}
