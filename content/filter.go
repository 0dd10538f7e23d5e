package content

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// nonContentTags are element types removed unconditionally before any
// configured filtering runs.
var nonContentTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
	"template": true,
}

// Filter applies remove/preserve selector rules to a content tree. The
// selector patterns are compiled once at construction; an invalid pattern
// is a configuration error and surfaces there, never during filtering.
type Filter struct {
	remove   []cascadia.Selector
	preserve []cascadia.Selector
}

// NewFilter compiles the remove and preserve selector patterns. Any pattern
// that fails to compile aborts construction with an error naming it.
func NewFilter(removeSelectors, preserveSelectors []string) (*Filter, error) {
	remove, err := compileAll(removeSelectors)
	if err != nil {
		return nil, fmt.Errorf("remove selector: %w", err)
	}
	preserve, err := compileAll(preserveSelectors)
	if err != nil {
		return nil, fmt.Errorf("preserve selector: %w", err)
	}
	return &Filter{remove: remove, preserve: preserve}, nil
}

func compileAll(patterns []string) ([]cascadia.Selector, error) {
	selectors := make([]cascadia.Selector, 0, len(patterns))
	for _, p := range patterns {
		sel, err := cascadia.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		selectors = append(selectors, sel)
	}
	return selectors, nil
}

// Apply removes matched nodes from the tree in place and returns the root.
//
// A node matched by a remove selector is dropped with its subtree unless it
// is preserved: preserve selectors win on the same node, nodes under a
// preserved ancestor stay, and a removable container holding a preserved
// descendant is kept so the descendant survives. Unmatched nodes pass
// through unchanged.
func (f *Filter) Apply(root *html.Node) *html.Node {
	StripNonContent(root)
	if len(f.remove) == 0 {
		return root
	}
	f.prune(root, false)
	return root
}

// prune walks the tree collecting removable nodes at each level before
// detaching them, so sibling iteration never sees a mutated list.
func (f *Filter) prune(n *html.Node, preserved bool) {
	var doomed []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		keep := preserved || f.matchesAny(f.preserve, c)
		if !keep && f.matchesAny(f.remove, c) {
			if f.containsPreserved(c) {
				// Keep the container so preserved descendants survive,
				// but keep pruning inside it.
				f.prune(c, false)
				continue
			}
			doomed = append(doomed, c)
			continue
		}
		f.prune(c, keep)
	}
	for _, c := range doomed {
		n.RemoveChild(c)
	}
}

func (f *Filter) matchesAny(selectors []cascadia.Selector, n *html.Node) bool {
	for _, sel := range selectors {
		if sel(n) {
			return true
		}
	}
	return false
}

// containsPreserved reports whether any descendant of n matches a preserve
// selector.
func (f *Filter) containsPreserved(n *html.Node) bool {
	if len(f.preserve) == 0 {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			if f.matchesAny(f.preserve, c) || f.containsPreserved(c) {
				return true
			}
		}
	}
	return false
}

// StripNonContent removes elements that never contribute to document
// content (scripts, styles, embeds).
func StripNonContent(root *html.Node) {
	var doomed []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && nonContentTags[n.Data] {
			doomed = append(doomed, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(root)
	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}
