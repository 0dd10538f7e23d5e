// Package fetch retrieves web pages and assets over HTTP, with guards
// against fetching from private address space, and optionally through a
// headless browser for pages that only materialize under JavaScript.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sitemark/sitemark/weburl"
)

// Fetcher retrieves the raw bytes of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Options configures an HTTPFetcher.
type Options struct {
	// Timeout bounds the whole request.
	Timeout time.Duration
	// UserAgent is sent with every request.
	UserAgent string
	// MaxContentSize caps the response body in bytes.
	MaxContentSize int64
	// AllowPrivate disables the private-address guard, for fetching from
	// local documentation servers.
	AllowPrivate bool
}

// DefaultOptions returns fetcher options suitable for public pages.
func DefaultOptions() Options {
	return Options{
		Timeout:        30 * time.Second,
		UserAgent:      "sitemark/1.0",
		MaxContentSize: 10 << 20,
	}
}

// HTTPFetcher fetches content over plain HTTP(S) with security checks.
type HTTPFetcher struct {
	client         *http.Client
	userAgent      string
	maxContentSize int64
	allowPrivate   bool
}

// NewHTTPFetcher creates an HTTP fetcher.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.MaxContentSize <= 0 {
		opts.MaxContentSize = DefaultOptions().MaxContentSize
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultOptions().UserAgent
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	// Custom DialContext that validates resolved IPs to prevent DNS
	// rebinding attacks.
	safeDialContext := func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}

		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("DNS lookup failed: %w", err)
		}

		if !opts.AllowPrivate {
			for _, ipAddr := range ips {
				if weburl.IsPrivateIP(ipAddr.IP) {
					return nil, fmt.Errorf("connection to private IP %s is not allowed", ipAddr.IP)
				}
			}
		}

		for _, ipAddr := range ips {
			connAddr := net.JoinHostPort(ipAddr.IP.String(), port)
			conn, err := dialer.DialContext(ctx, network, connAddr)
			if err == nil {
				return conn, nil
			}
		}

		return nil, fmt.Errorf("failed to connect to any resolved IP")
	}

	transport := &http.Transport{
		DialContext:           safeDialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				if !opts.AllowPrivate {
					if err := weburl.Validate(req.URL.String()); err != nil {
						return fmt.Errorf("redirect blocked: %w", err)
					}
				}
				return nil
			},
		},
		userAgent:      opts.UserAgent,
		maxContentSize: opts.MaxContentSize,
		allowPrivate:   opts.AllowPrivate,
	}
}

// Fetch retrieves content from the given URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, urlStr string) ([]byte, error) {
	if !f.allowPrivate {
		if err := weburl.Validate(urlStr); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	limitReader := io.LimitReader(resp.Body, f.maxContentSize+1)
	body, err := io.ReadAll(limitReader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if int64(len(body)) > f.maxContentSize {
		return nil, fmt.Errorf("content too large (exceeds %d bytes)", f.maxContentSize)
	}

	return body, nil
}

// Download implements the asset downloader contract with the same transport
// and guards as page fetching.
func (f *HTTPFetcher) Download(ctx context.Context, urlStr string) ([]byte, error) {
	return f.Fetch(ctx, urlStr)
}
