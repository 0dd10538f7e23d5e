// Package assets discovers embeddable resources in a content tree,
// downloads them with integrity checksums, and rewrites their references
// to local paths.
//
// Downloads for distinct canonical URLs run concurrently on a bounded
// worker pool; the dedup map guarantees at most one fetch per canonical
// URL even when many nodes reference the same resource. A failed download
// is a recoverable warning, never a pipeline failure.
package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/sitemark/sitemark/content"
	"github.com/sitemark/sitemark/weburl"
)

// Status is an asset's download lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Asset is a downloadable resource referenced by one or more content
// nodes. Assets are deduplicated by canonical source URL and live for the
// whole pipeline run.
type Asset struct {
	// SourceURL is the canonical remote URL.
	SourceURL string

	// LocalPath is the assigned local relative path (forward slashes),
	// empty until the download succeeds.
	LocalPath string

	// Checksum is the sha256 hex digest of the downloaded bytes.
	Checksum string

	// Status tracks the download lifecycle.
	Status Status

	data []byte
	refs []*html.Node
}

// Data returns the downloaded bytes, nil unless Status is succeeded.
func (a *Asset) Data() []byte { return a.data }

// Downloader fetches raw resource bytes. Implemented by the fetch package.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Config holds asset resolution configuration.
type Config struct {
	// Download enables fetching; when false every asset is skipped and
	// references stay remote.
	Download bool

	// BasePath is the directory (relative to the output documents) where
	// downloaded assets are placed and referenced.
	BasePath string

	// SkipTypes lists extensions (".svg") or glob patterns ("*.gif")
	// whose resources are never downloaded.
	SkipTypes []string

	// Concurrency bounds the download worker pool.
	Concurrency int

	// Timeout aborts a single download; the failure is recoverable.
	Timeout time.Duration
}

// DefaultConfig returns asset resolution defaults.
func DefaultConfig() Config {
	return Config{
		Download:    true,
		BasePath:    "assets",
		Concurrency: 4,
		Timeout:     30 * time.Second,
	}
}

// Resolver tracks and resolves the assets of a single pipeline run.
type Resolver struct {
	config     Config
	downloader Downloader
	logger     *slog.Logger

	mu     sync.Mutex
	assets map[string]*Asset
	order  []string
	names  map[string]bool
}

// NewResolver creates a Resolver. The downloader may be nil when
// downloading is disabled.
func NewResolver(cfg Config, downloader Downloader, logger *slog.Logger) *Resolver {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		config:     cfg,
		downloader: downloader,
		logger:     logger,
		assets:     make(map[string]*Asset),
		names:      make(map[string]bool),
	}
}

// Collect walks the tree registering every image reference. Each distinct
// canonical URL is tracked once; later references attach to the existing
// asset. Unresolvable references are left untouched.
func (r *Resolver) Collect(root *html.Node, base *url.URL) {
	content.Visit(root, func(n *html.Node) bool {
		if n.Data == "img" {
			if src := content.Attr(n, "src"); src != "" {
				r.register(src, base, n)
			}
		}
		return true
	})
}

func (r *Resolver) register(src string, base *url.URL, node *html.Node) {
	canonical, err := weburl.Canonicalize(src, base)
	if err != nil {
		r.logger.Warn("unresolvable image reference", slog.String("src", src), slog.String("error", err.Error()))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	asset, ok := r.assets[canonical]
	if !ok {
		asset = &Asset{SourceURL: canonical, Status: StatusPending}
		if !r.config.Download || r.skip(canonical) {
			asset.Status = StatusSkipped
		} else {
			asset.LocalPath = r.assignPath(canonical)
		}
		r.assets[canonical] = asset
		r.order = append(r.order, canonical)
	}
	asset.refs = append(asset.refs, node)
}

// skip reports whether the canonical URL matches a configured skip type.
func (r *Resolver) skip(canonical string) bool {
	parsed, err := url.Parse(canonical)
	if err != nil {
		return false
	}
	name := path.Base(parsed.Path)
	ext := strings.ToLower(path.Ext(parsed.Path))

	for _, pattern := range r.config.SkipTypes {
		p := strings.ToLower(pattern)
		if strings.HasPrefix(p, ".") {
			if ext == p {
				return true
			}
			continue
		}
		if ok, err := doublestar.Match(p, strings.ToLower(name)); err == nil && ok {
			return true
		}
	}
	return false
}

// assignPath derives a collision-safe local path from the URL's last path
// segment. Assignment happens at registration under the lock, so paths are
// deterministic in discovery order.
func (r *Resolver) assignPath(canonical string) string {
	name := sanitizeName(weburl.LastPathSegment(canonical))
	if name == "" {
		name = "asset"
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for n := 2; r.names[candidate]; n++ {
		candidate = stem + "-" + strconv.Itoa(n) + ext
	}
	r.names[candidate] = true

	return path.Join(r.config.BasePath, candidate)
}

// Resolve downloads every pending asset on a bounded worker pool. Failures
// are downgraded to warnings; Resolve itself only returns the context's
// error when the whole run is cancelled.
func (r *Resolver) Resolve(ctx context.Context) error {
	pending := r.pendingAssets()
	if len(pending) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)

	for _, asset := range pending {
		asset := asset
		g.Go(func() error {
			r.download(gctx, asset)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (r *Resolver) pendingAssets() []*Asset {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []*Asset
	for _, key := range r.order {
		if a := r.assets[key]; a.Status == StatusPending {
			pending = append(pending, a)
		}
	}
	return pending
}

func (r *Resolver) download(ctx context.Context, asset *Asset) {
	dctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	data, err := r.downloader.Download(dctx, asset.SourceURL)
	if err != nil {
		r.logger.Warn("asset download failed",
			slog.String("url", asset.SourceURL),
			slog.String("error", err.Error()))
		r.mu.Lock()
		asset.Status = StatusFailed
		r.mu.Unlock()
		return
	}

	sum := sha256.Sum256(data)

	r.mu.Lock()
	asset.data = data
	asset.Checksum = hex.EncodeToString(sum[:])
	asset.Status = StatusSucceeded
	r.mu.Unlock()
}

// Rewrite updates every referencing node after all downloads have settled:
// succeeded assets point at their local path, failed and skipped ones at
// the canonical remote URL. Running after settlement keeps the final
// Markdown deterministic regardless of download completion order.
func (r *Resolver) Rewrite() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.order {
		asset := r.assets[key]
		target := asset.SourceURL
		if asset.Status == StatusSucceeded {
			target = asset.LocalPath
		}
		for _, node := range asset.refs {
			content.SetAttr(node, "src", target)
		}
	}
}

// Assets returns all tracked assets in discovery order.
func (r *Resolver) Assets() []*Asset {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*Asset, 0, len(r.order))
	for _, key := range r.order {
		result = append(result, r.assets[key])
	}
	return result
}

// sanitizeName restricts a filename to filesystem-safe characters.
func sanitizeName(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-.")
}
