// Package layout derives unique, filesystem-safe output paths for
// sections: optional domain and date folders, sanitized kebab filenames,
// and ordinal suffixes on collision. Planning is deterministic: identical
// sections and configuration always produce identical paths.
package layout

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/sitemark/sitemark/segment"
	"github.com/sitemark/sitemark/weburl"
)

// ErrDuplicatePath reports a path collision that survived collision
// resolution. It is an internal consistency error, fatal to the page run.
var ErrDuplicatePath = errors.New("duplicate output path")

// maxFilenameLen bounds the sanitized stem so paths stay well under
// filesystem limits.
const maxFilenameLen = 80

// Placement maps one section ordinal to its output location.
type Placement struct {
	Section  int
	Dir      string
	Filename string
	Path     string
}

// Config holds naming and layout configuration.
type Config struct {
	// DomainFolders places each page's files under a folder derived from
	// its domain.
	DomainFolders bool

	// IncludeSubdomains adds a subdomain subfolder above the domain folder.
	IncludeSubdomains bool

	// SanitizeChar replaces characters that are unsafe in folder names.
	SanitizeChar string

	// FallbackFolder is used when the domain sanitizes to nothing.
	FallbackFolder string

	// DateFolders nests output under a YYYY-MM-DD folder for the run.
	DateFolders bool
}

// DefaultConfig returns layout defaults.
func DefaultConfig() Config {
	return Config{
		DomainFolders:     true,
		IncludeSubdomains: true,
		SanitizeChar:      "_",
		FallbackFolder:    "unknown_domain",
	}
}

// Planner assigns output paths to sections.
type Planner struct {
	config Config
	now    func() time.Time
}

// New creates a Planner.
func New(cfg Config) *Planner {
	if cfg.SanitizeChar == "" {
		cfg.SanitizeChar = "_"
	}
	if cfg.FallbackFolder == "" {
		cfg.FallbackFolder = DefaultConfig().FallbackFolder
	}
	return &Planner{config: cfg, now: time.Now}
}

// Plan derives a placement per section, in section order. Colliding
// filenames get an ordinal suffix on all but the first; the returned
// placements are guaranteed path-unique.
func (p *Planner) Plan(sections []segment.Section, pageURL string) ([]Placement, error) {
	dir := p.baseDir(pageURL)

	seen := make(map[string]bool, len(sections))
	placements := make([]Placement, 0, len(sections))
	for _, sec := range sections {
		stem := NormalizeFilename(sec.Title)

		filename := stem + ".md"
		for n := 2; seen[filename]; n++ {
			filename = fmt.Sprintf("%s-%d.md", stem, n)
		}
		seen[filename] = true

		placements = append(placements, Placement{
			Section:  sec.Index,
			Dir:      dir,
			Filename: filename,
			Path:     path.Join(dir, filename),
		})
	}

	unique := make(map[string]bool, len(placements))
	for _, pl := range placements {
		if unique[pl.Path] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePath, pl.Path)
		}
		unique[pl.Path] = true
	}

	return placements, nil
}

func (p *Planner) baseDir(pageURL string) string {
	var dir string
	if p.config.DateFolders {
		dir = p.now().Format("2006-01-02")
	}
	if p.config.DomainFolders {
		domain := weburl.BuildDomainPath(pageURL, p.config.IncludeSubdomains,
			p.config.SanitizeChar, p.config.FallbackFolder)
		dir = path.Join(dir, domain)
	}
	return dir
}

// NormalizeFilename sanitizes a section title into a lower-kebab filename
// stem: invalid characters dropped, whitespace and hyphen runs collapsed
// to single hyphens, truncated to a safe length, "unnamed" when nothing
// survives.
func NormalizeFilename(title string) string {
	lower := strings.ToLower(title)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '-':
			b.WriteByte('-')
		}
	}

	stem := b.String()
	for strings.Contains(stem, "--") {
		stem = strings.ReplaceAll(stem, "--", "-")
	}
	stem = strings.Trim(stem, "-.")

	if len(stem) > maxFilenameLen {
		stem = strings.Trim(stem[:maxFilenameLen], "-.")
	}
	if stem == "" {
		stem = "unnamed"
	}
	return stem
}
