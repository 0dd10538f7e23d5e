package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/sitemark/sitemark/weburl"
)

// ErrBrowserConnect indicates the headless browser could not be started.
var ErrBrowserConnect = errors.New("browser connect failed")

// BrowserOptions configures a BrowserFetcher.
type BrowserOptions struct {
	// Timeout bounds page load and capture.
	Timeout time.Duration
	// Wait is an extra delay after load before the DOM is captured.
	Wait time.Duration
	// WaitSelector blocks capture until the selector matches.
	WaitSelector string
	// Scroll scrolls to the bottom of the page before capture so lazily
	// loaded content materializes.
	Scroll bool
	// AllowPrivate disables the private-address guard.
	AllowPrivate bool
}

// BrowserFetcher fetches pages through headless Chrome so that content
// rendered by JavaScript is present in the captured DOM.
type BrowserFetcher struct {
	opts    BrowserOptions
	browser *rod.Browser
}

// NewBrowserFetcher creates a browser-backed fetcher. The browser is
// launched lazily on the first Fetch.
func NewBrowserFetcher(opts BrowserOptions) *BrowserFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &BrowserFetcher{opts: opts}
}

// ensureBrowser lazily connects to the browser.
func (b *BrowserFetcher) ensureBrowser() error {
	if b.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	b.browser = rod.New().ControlURL(u)
	if err := b.browser.Connect(); err != nil {
		b.browser = nil
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// Close releases browser resources.
func (b *BrowserFetcher) Close() error {
	if b.browser != nil {
		err := b.browser.Close()
		b.browser = nil
		return err
	}
	return nil
}

// Fetch navigates to the URL, waits for the page to settle, and returns the
// serialized DOM.
func (b *BrowserFetcher) Fetch(ctx context.Context, urlStr string) ([]byte, error) {
	if !b.opts.AllowPrivate {
		if err := weburl.Validate(urlStr); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := b.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{URL: urlStr})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	timeout := b.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	page = page.Timeout(timeout)

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("page load: %w", err)
	}

	if b.opts.WaitSelector != "" {
		if _, err := page.Element(b.opts.WaitSelector); err != nil {
			return nil, fmt.Errorf("wait selector %q: %w", b.opts.WaitSelector, err)
		}
	}

	if b.opts.Scroll {
		if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			return nil, fmt.Errorf("scroll: %w", err)
		}
		if err := page.WaitIdle(timeout); err != nil {
			return nil, fmt.Errorf("wait idle after scroll: %w", err)
		}
	}

	if b.opts.Wait > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(b.opts.Wait):
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("capture DOM: %w", err)
	}
	return []byte(html), nil
}
