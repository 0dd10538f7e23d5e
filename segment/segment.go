// Package segment partitions a filtered content tree into an ordered
// sequence of sections along heading boundaries.
package segment

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/sitemark/sitemark/content"
)

// Section is a contiguous run of content blocks bounded by a splitting
// heading. Sections are immutable once handed to the renderer.
type Section struct {
	// Title comes from the bounding heading, or is synthesized from the
	// page title when no heading opened the section.
	Title string

	// Index is the section's stable ordinal position.
	Index int

	// Nodes holds the section's content blocks in traversal order. When the
	// section was opened by a heading, that heading is Nodes[0].
	Nodes []*html.Node

	// Length is the character count of the section's text content,
	// excluding the bounding heading itself.
	Length int

	// Synthesized marks sections whose title did not come from a heading.
	Synthesized bool

	// Anchors lists the element IDs found inside the section, used later
	// to resolve cross-section links.
	Anchors []string
}

// Empty reports whether the section holds no content beyond its bounding
// heading. Consecutive headings with nothing between them produce these.
func (s *Section) Empty() bool {
	if len(s.Nodes) == 0 {
		return true
	}
	if s.Synthesized {
		return s.Length == 0
	}
	return len(s.Nodes) == 1 && s.Length == 0
}

// Config holds segmentation configuration.
type Config struct {
	// SplitLevel is the heading level that opens a new section; headings of
	// this level or shallower split, deeper ones stay inside the section.
	SplitLevel int

	// MinLength is the minimum section text length; shorter sections are
	// merged into a neighbor when CombineShort is set.
	MinLength int

	// CombineShort enables merging undersized sections.
	CombineShort bool
}

// DefaultConfig returns segmentation defaults: split at h1, no minimum.
func DefaultConfig() Config {
	return Config{SplitLevel: 1}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SplitLevel < 1 || c.SplitLevel > 6 {
		return fmt.Errorf("split level must be between 1 and 6, got %d", c.SplitLevel)
	}
	if c.MinLength < 0 {
		return fmt.Errorf("minimum length must be non-negative, got %d", c.MinLength)
	}
	return nil
}

// Segmenter splits a content tree into sections.
type Segmenter struct {
	config Config
}

// New creates a Segmenter, validating the configuration.
func New(cfg Config) (*Segmenter, error) {
	if cfg.SplitLevel == 0 {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Segmenter{config: cfg}, nil
}

// Split partitions the tree rooted at body into sections. The result is
// never empty: content without any splitting heading becomes one section
// titled from pageTitle or a generated fallback. Concatenating all
// sections' node sequences reproduces the traversal order of the input;
// splitting never reorders or drops content.
func (s *Segmenter) Split(body *html.Node, pageTitle string) []Section {
	blocks := collectBlocks(body)

	var sections []Section
	open := func(title string, synthesized bool) *Section {
		sections = append(sections, Section{
			Title:       title,
			Index:       len(sections),
			Synthesized: synthesized,
		})
		return &sections[len(sections)-1]
	}

	var current *Section
	for _, block := range blocks {
		level := content.HeadingLevel(block)
		if level > 0 && level <= s.config.SplitLevel {
			title := content.Text(block)
			if title == "" {
				title = s.fallbackTitle(pageTitle, len(sections))
			}
			current = open(title, false)
			current.Nodes = append(current.Nodes, block)
			continue
		}
		if current == nil {
			current = open(s.fallbackTitle(pageTitle, 0), true)
		}
		current.Nodes = append(current.Nodes, block)
		current.Length += len(content.Text(block))
	}

	if len(sections) == 0 {
		sections = append(sections, Section{
			Title:       s.fallbackTitle(pageTitle, 0),
			Synthesized: true,
		})
	}

	if s.config.CombineShort {
		sections = s.combineShort(sections)
	}

	for i := range sections {
		sections[i].Index = i
		sections[i].Anchors = collectAnchors(sections[i].Nodes)
	}
	return sections
}

// fallbackTitle synthesizes a title for a section with no bounding heading.
func (s *Segmenter) fallbackTitle(pageTitle string, ordinal int) string {
	if pageTitle != "" {
		if ordinal == 0 {
			return pageTitle
		}
		return fmt.Sprintf("%s %d", pageTitle, ordinal+1)
	}
	return fmt.Sprintf("Untitled Section %d", ordinal+1)
}

// combineShort merges sections below the minimum length into the following
// section, preserving node order and the earlier ordinal position. The
// merged section keeps the short section's title unless that title was
// synthesized or the section was empty, in which case the absorbing
// section's title wins. A trailing short section has no following neighbor
// and is kept, except that a trailing empty section (a bare heading) is
// always absorbed backward into the preceding one.
func (s *Segmenter) combineShort(sections []Section) []Section {
	short := func(sec *Section) bool {
		return sec.Empty() || sec.Length < s.config.MinLength
	}

	var result []Section
	for i := 0; i < len(sections); i++ {
		sec := sections[i]
		if short(&sec) && i < len(sections)-1 {
			next := &sections[i+1]
			next.Nodes = append(sec.Nodes, next.Nodes...)
			if sec.Synthesized || sec.Empty() {
				next.Length += sec.Length + headingTextLen(&sec)
			} else {
				next.Length += sec.Length + headingTextLen(next)
				next.Title = sec.Title
				next.Synthesized = false
			}
			continue
		}
		if sec.Empty() && len(result) > 0 {
			last := &result[len(result)-1]
			last.Nodes = append(last.Nodes, sec.Nodes...)
			last.Length += sec.Length + headingTextLen(&sec)
			continue
		}
		result = append(result, sec)
	}
	if len(result) == 0 {
		// Everything was empty; keep a single section so output is never empty.
		result = sections[:1]
	}
	return result
}

// headingTextLen returns the text length of a section's bounding heading,
// which counts toward the absorbing section's content once merged.
func headingTextLen(sec *Section) int {
	if sec.Synthesized || len(sec.Nodes) == 0 {
		return 0
	}
	return len(content.Text(sec.Nodes[0]))
}

// collectBlocks flattens the tree into a sequence of content blocks via a
// depth-first walk, descending into structural containers and emitting
// everything else as-is.
func collectBlocks(n *html.Node) []*html.Node {
	var blocks []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.ElementNode && content.IsContainer(c):
			blocks = append(blocks, collectBlocks(c)...)
		case c.Type == html.ElementNode:
			blocks = append(blocks, c)
		case c.Type == html.TextNode && content.Text(c) != "":
			blocks = append(blocks, c)
		}
	}
	return blocks
}

// collectAnchors gathers element IDs from the section's subtrees.
func collectAnchors(nodes []*html.Node) []string {
	var anchors []string
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		content.Visit(n, func(el *html.Node) bool {
			if id := content.Attr(el, "id"); id != "" {
				anchors = append(anchors, id)
			}
			return true
		})
	}
	return anchors
}
