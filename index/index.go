// Package index builds the cross-reference layer over rendered documents:
// it resolves the renderer's {{xref:anchor}} placeholders into relative
// links, extracts heading outlines for the table of contents, and emits
// the README index that makes every output file reachable.
package index

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/sitemark/sitemark/render"
)

// ErrOrphanSection reports a document that would be unreachable from the
// index. It is an internal consistency error, fatal to the page run.
var ErrOrphanSection = errors.New("orphaned section")

// Document is one rendered section with its final path.
type Document struct {
	Ordinal int
	Title   string
	Path    string
	Body    string
	Anchors []string

	// CrossRefs lists the paths of other documents this one links to,
	// populated by ResolveXrefs.
	CrossRefs []string
}

// Heading is one outline entry extracted from a document body.
type Heading struct {
	Level int
	Text  string
}

// Config holds index building configuration.
type Config struct {
	// TOCEnabled nests heading entries under each document link.
	TOCEnabled bool

	// TOCMaxDepth bounds the heading depth included in the TOC.
	TOCMaxDepth int
}

// Builder builds the README/TOC index and resolves cross-references.
type Builder struct {
	config   Config
	markdown goldmark.Markdown
}

// New creates a Builder.
func New(cfg Config) *Builder {
	if cfg.TOCMaxDepth <= 0 {
		cfg.TOCMaxDepth = 2
	}
	return &Builder{config: cfg, markdown: goldmark.New()}
}

// ResolveXrefs rewrites every {{xref:anchor}} placeholder into a relative
// link against the final document paths. Anchors that resolve to the same
// document become plain fragments; anchors no document owns stay as
// fragments so the link degrades gracefully. Each document's CrossRefs
// records the distinct documents it ends up linking to.
func (b *Builder) ResolveXrefs(docs []*Document) {
	owner := make(map[string]*Document)
	for _, doc := range docs {
		for _, anchor := range doc.Anchors {
			if _, taken := owner[anchor]; !taken {
				owner[anchor] = doc
			}
		}
	}

	for _, doc := range docs {
		refs := make(map[string]bool)
		doc.Body = render.XrefPattern.ReplaceAllStringFunc(doc.Body, func(token string) string {
			anchor := render.XrefPattern.FindStringSubmatch(token)[1]
			target, ok := owner[anchor]
			if !ok || target == doc {
				return "#" + anchor
			}
			refs[target.Path] = true
			return relativePath(doc.Path, target.Path) + "#" + anchor
		})

		doc.CrossRefs = doc.CrossRefs[:0]
		for _, other := range docs {
			if refs[other.Path] {
				doc.CrossRefs = append(doc.CrossRefs, other.Path)
			}
		}
	}
}

// BuildReadme emits the README index: the page title, the source URL, and
// every document in ordinal order, with heading sub-entries up to the
// configured depth when the TOC is enabled. A document without a path is
// an orphan and aborts the build.
func (b *Builder) BuildReadme(docs []*Document, pageTitle, sourceURL string) (string, error) {
	title := strings.TrimSpace(pageTitle)
	if title == "" {
		title = "Table of Contents"
	}

	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(title)
	sb.WriteString("\n\n")
	if sourceURL != "" {
		fmt.Fprintf(&sb, "> Source: <%s>\n\n", sourceURL)
	}

	readmeDir := ""
	if len(docs) > 0 {
		readmeDir = path.Dir(docs[0].Path)
	}

	for _, doc := range docs {
		if doc.Path == "" {
			return "", fmt.Errorf("%w: %q (ordinal %d)", ErrOrphanSection, doc.Title, doc.Ordinal)
		}
		rel := relativePath(path.Join(readmeDir, "README.md"), doc.Path)
		fmt.Fprintf(&sb, "- [%s](%s)\n", displayName(doc), rel)

		if !b.config.TOCEnabled {
			continue
		}
		for _, h := range b.Headings(doc.Body) {
			if h.Level < 2 || h.Level > b.config.TOCMaxDepth {
				continue
			}
			indent := strings.Repeat("  ", h.Level-1)
			fmt.Fprintf(&sb, "%s- [%s](%s#%s)\n", indent, h.Text, rel, slugify(h.Text))
		}
	}

	return sb.String(), nil
}

// Headings extracts the heading outline from a Markdown body.
func (b *Builder) Headings(body string) []Heading {
	source := []byte(body)
	root := b.markdown.Parser().Parse(text.NewReader(source))

	var headings []Heading
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			headings = append(headings, Heading{
				Level: h.Level,
				Text:  headingText(h, source),
			})
		}
		return ast.WalkContinue, nil
	})
	return headings
}

// headingText concatenates the literal text of a heading's children.
func headingText(h *ast.Heading, source []byte) string {
	var sb strings.Builder
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		collectText(c, source, &sb)
	}
	return strings.TrimSpace(sb.String())
}

func collectText(n ast.Node, source []byte, sb *strings.Builder) {
	if t, ok := n.(*ast.Text); ok {
		sb.Write(t.Segment.Value(source))
		return
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		collectText(c, source, sb)
	}
}

// displayName is the link text for a document: its title, or a title-cased
// form of its filename stem when the title is empty.
func displayName(doc *Document) string {
	if title := strings.TrimSpace(doc.Title); title != "" {
		return title
	}
	stem := strings.TrimSuffix(path.Base(doc.Path), path.Ext(doc.Path))
	words := strings.FieldsFunc(stem, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// slugify derives a GitHub-style fragment anchor from heading text.
func slugify(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	return b.String()
}

// relativePath computes the relative link from one output file to another
// using forward slashes.
func relativePath(from, to string) string {
	fromDir := path.Dir(from)
	if fromDir == "." {
		return to
	}

	fromParts := strings.Split(fromDir, "/")
	toParts := strings.Split(to, "/")

	common := 0
	for common < len(fromParts) && common < len(toParts)-1 && fromParts[common] == toParts[common] {
		common++
	}

	var rel []string
	for i := common; i < len(fromParts); i++ {
		rel = append(rel, "..")
	}
	rel = append(rel, toParts[common:]...)
	return strings.Join(rel, "/")
}
