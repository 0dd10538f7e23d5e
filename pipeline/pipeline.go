// Package pipeline wires fetching, filtering, segmentation, asset
// resolution, rendering, and layout into the page conversion flow: one URL
// in, a set of Markdown files plus downloaded assets and a manifest out.
package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/sitemark/sitemark/assets"
	"github.com/sitemark/sitemark/codelang"
	"github.com/sitemark/sitemark/config"
	"github.com/sitemark/sitemark/content"
	"github.com/sitemark/sitemark/fetch"
	"github.com/sitemark/sitemark/index"
	"github.com/sitemark/sitemark/layout"
	"github.com/sitemark/sitemark/render"
	"github.com/sitemark/sitemark/segment"
	"github.com/sitemark/sitemark/weburl"
)

// ManifestFilename is written alongside the generated files of each page.
const ManifestFilename = "manifest.yaml"

// OutputFile is one generated Markdown file.
type OutputFile struct {
	// Path is relative to the output root.
	Path     string
	Body     []byte
	Checksum string
}

// AssetFile is one downloaded asset ready to be written.
type AssetFile struct {
	Path      string
	Data      []byte
	Checksum  string
	SourceURL string
}

// Result is the full outcome of converting one page.
type Result struct {
	URL      string
	Title    string
	Dir      string
	Files    []OutputFile
	Assets   []AssetFile
	Manifest *Manifest
}

// Pipeline converts web pages to Markdown file trees.
type Pipeline struct {
	config     *config.Config
	fetcher    fetch.Fetcher
	downloader assets.Downloader
	logger     *slog.Logger
}

// New creates a Pipeline with fetchers derived from the configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpFetcher := fetch.NewHTTPFetcher(fetch.Options{
		Timeout:        cfg.Fetch.Timeout.Std(),
		UserAgent:      cfg.Fetch.UserAgent,
		MaxContentSize: cfg.Fetch.MaxContentSize,
	})

	var fetcher fetch.Fetcher = httpFetcher
	if cfg.Fetch.RenderJS {
		fetcher = fetch.NewBrowserFetcher(fetch.BrowserOptions{
			Timeout:      cfg.Fetch.Timeout.Std(),
			Wait:         cfg.Fetch.Wait.Std(),
			WaitSelector: cfg.Fetch.WaitSelector,
			Scroll:       cfg.Fetch.Scroll,
		})
	}

	return NewWithFetchers(cfg, fetcher, httpFetcher, logger)
}

// NewWithFetchers creates a Pipeline with explicit page and asset fetchers.
func NewWithFetchers(cfg *config.Config, fetcher fetch.Fetcher, downloader assets.Downloader, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		config:     cfg,
		fetcher:    fetcher,
		downloader: downloader,
		logger:     logger,
	}, nil
}

// Close releases fetcher resources such as a headless browser.
func (p *Pipeline) Close() error {
	if c, ok := p.fetcher.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// ConvertPage runs the full conversion for one URL. The returned Result
// holds everything in memory; Materialize writes it to disk.
func (p *Pipeline) ConvertPage(ctx context.Context, rawURL string) (*Result, error) {
	pageURL, err := weburl.Sanitize(rawURL)
	if err != nil {
		return nil, fmt.Errorf("url %q: %w", rawURL, err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("url %q: %w", pageURL, err)
	}

	p.logger.Info("Fetching page", slog.String("url", pageURL))
	raw, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	doc, err := content.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	title := content.Title(doc)

	if p.config.Readability {
		if readable, rerr := content.ExtractReadable(raw, base); rerr == nil {
			doc = readable
		} else {
			p.logger.Warn("Readability extraction failed, using full page",
				slog.String("url", pageURL), slog.String("error", rerr.Error()))
		}
	}

	body := content.Body(doc)
	if body == nil {
		body = doc
	}

	filter, err := content.NewFilter(p.config.RemoveSelectors, p.config.PreserveSelectors)
	if err != nil {
		return nil, err
	}
	body = filter.Apply(body)

	segmenter, err := segment.New(segment.Config{
		SplitLevel:   p.config.SplitOn,
		MinLength:    p.config.MinLength,
		CombineShort: p.config.CombineShort,
	})
	if err != nil {
		return nil, err
	}
	sections := segmenter.Split(body, title)
	p.logger.Info("Segmented page",
		slog.String("url", pageURL), slog.Int("sections", len(sections)))

	resolver := assets.NewResolver(assets.Config{
		Download:    p.config.Images.Download,
		BasePath:    p.config.Images.BasePath,
		SkipTypes:   p.config.Images.SkipTypes,
		Concurrency: p.config.Images.Concurrency,
		Timeout:     p.config.Images.Timeout.Std(),
	}, p.downloader, p.logger)
	resolver.Collect(body, base)
	if err := resolver.Resolve(ctx); err != nil {
		return nil, fmt.Errorf("resolve assets: %w", err)
	}
	resolver.Rewrite()

	planner := layout.New(layout.Config{
		DomainFolders:     p.config.DomainFolders,
		IncludeSubdomains: p.config.IncludeSubdomains,
		SanitizeChar:      p.config.SanitizeChars,
		FallbackFolder:    p.config.FallbackFolder,
		DateFolders:       p.config.DateFolders,
	})
	placements, err := planner.Plan(sections, pageURL)
	if err != nil {
		return nil, err
	}

	classifier := codelang.New(p.config.Code.DetectLanguage, p.config.Code.DefaultLanguage)
	renderer, err := render.New(p.config.Style, classifier)
	if err != nil {
		return nil, err
	}

	docs := make([]*index.Document, len(sections))
	for i := range sections {
		rendered, rerr := renderer.RenderSection(sections[i])
		if rerr != nil {
			return nil, fmt.Errorf("render section %q: %w", sections[i].Title, rerr)
		}
		docs[i] = &index.Document{
			Ordinal: sections[i].Index,
			Title:   sections[i].Title,
			Path:    placements[i].Path,
			Body:    rendered,
			Anchors: sections[i].Anchors,
		}
	}

	builder := index.New(index.Config{
		TOCEnabled:  p.config.TOC.Enabled,
		TOCMaxDepth: p.config.TOC.MaxDepth,
	})
	builder.ResolveXrefs(docs)

	result := &Result{
		URL:   pageURL,
		Title: title,
		Dir:   placements[0].Dir,
	}

	for _, doc := range docs {
		body := []byte(doc.Body)
		result.Files = append(result.Files, OutputFile{
			Path:     doc.Path,
			Body:     body,
			Checksum: checksum(body),
		})
	}

	if p.config.ReadmeIndex {
		readme, rerr := builder.BuildReadme(docs, title, pageURL)
		if rerr != nil {
			return nil, rerr
		}
		body := []byte(readme)
		result.Files = append(result.Files, OutputFile{
			Path:     path.Join(result.Dir, "README.md"),
			Body:     body,
			Checksum: checksum(body),
		})
	}

	for _, asset := range resolver.Assets() {
		if asset.Status != assets.StatusSucceeded {
			continue
		}
		result.Assets = append(result.Assets, AssetFile{
			Path:      path.Join(result.Dir, asset.LocalPath),
			Data:      asset.Data(),
			Checksum:  asset.Checksum,
			SourceURL: asset.SourceURL,
		})
	}

	result.Manifest = buildManifest(result)
	return result, nil
}

// checksum returns the hex SHA-256 of data.
func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// buildManifest records every generated file and asset with its checksum.
func buildManifest(result *Result) *Manifest {
	m := &Manifest{
		RunID:       uuid.NewString(),
		URL:         result.URL,
		Title:       result.Title,
		GeneratedAt: time.Now().UTC(),
		Files:       make(map[string]string, len(result.Files)),
		Assets:      make(map[string]string, len(result.Assets)),
	}
	for _, f := range result.Files {
		m.Files[f.Path] = f.Checksum
	}
	for _, a := range result.Assets {
		m.Assets[a.Path] = a.Checksum
	}
	return m
}
