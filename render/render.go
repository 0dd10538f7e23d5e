// Package render converts section node sequences into Markdown text.
//
// Conversion is delegated to html-to-markdown with the GitHub Flavored
// plugin; custom rules handle code fences (language resolution via the
// codelang classifier) and in-page anchor links, which become
// {{xref:anchor}} placeholder tokens for the index builder to resolve once
// final file paths exist. The output is normalized so rendering the same
// section twice yields byte-identical text.
package render

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"

	"github.com/sitemark/sitemark/codelang"
	"github.com/sitemark/sitemark/content"
	"github.com/sitemark/sitemark/segment"
)

// XrefPattern matches the cross-section placeholder tokens the renderer
// leaves behind for the index builder.
var XrefPattern = regexp.MustCompile(`\{\{xref:([^}]+)\}\}`)

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

// indentMarker stands in for the four-space prefix of indented code lines
// while the converter runs; its whitespace cleanup would strip a real
// prefix from the first line of the document. normalize swaps it back.
const indentMarker = "\x00"

// Style holds the Markdown style configuration. Invalid values are
// configuration errors caught by Validate before any rendering happens.
type Style struct {
	Heading   string `yaml:"heading"`    // atx | setext
	Bullet    string `yaml:"bullet"`     // - | * | +
	CodeBlock string `yaml:"code_block"` // fenced | indented
	Fence     string `yaml:"fence"`      // ``` | ~~~
	Emphasis  string `yaml:"emphasis"`   // * | _
	Strong    string `yaml:"strong"`     // ** | __
}

// DefaultStyle returns the default Markdown style.
func DefaultStyle() Style {
	return Style{
		Heading:   "atx",
		Bullet:    "-",
		CodeBlock: "fenced",
		Fence:     "```",
		Emphasis:  "*",
		Strong:    "**",
	}
}

// Validate checks every style enum.
func (s Style) Validate() error {
	checks := []struct {
		field, value string
		allowed      []string
	}{
		{"heading", s.Heading, []string{"atx", "setext"}},
		{"bullet", s.Bullet, []string{"-", "*", "+"}},
		{"code_block", s.CodeBlock, []string{"fenced", "indented"}},
		{"fence", s.Fence, []string{"```", "~~~"}},
		{"emphasis", s.Emphasis, []string{"*", "_"}},
		{"strong", s.Strong, []string{"**", "__"}},
	}
	for _, c := range checks {
		if !contains(c.allowed, c.value) {
			return fmt.Errorf("invalid style.%s %q (allowed: %s)",
				c.field, c.value, strings.Join(c.allowed, ", "))
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// Renderer converts section fragments to Markdown.
type Renderer struct {
	style      Style
	classifier *codelang.Classifier
	converter  *md.Converter
}

// New creates a Renderer for the given style. A nil classifier disables
// language resolution for code fences.
func New(style Style, classifier *codelang.Classifier) (*Renderer, error) {
	if style == (Style{}) {
		style = DefaultStyle()
	}
	if err := style.Validate(); err != nil {
		return nil, err
	}
	if classifier == nil {
		classifier = &codelang.Classifier{}
	}

	r := &Renderer{style: style, classifier: classifier}

	conv := md.NewConverter("", true, &md.Options{
		HeadingStyle:     style.Heading,
		BulletListMarker: style.Bullet,
		CodeBlockStyle:   style.CodeBlock,
		Fence:            style.Fence,
		EmDelimiter:      style.Emphasis,
		StrongDelimiter:  style.Strong,
		HorizontalRule:   "---",
		LinkStyle:        "inlined",
	})
	conv.Use(plugin.GitHubFlavored())
	conv.AddRules(
		md.Rule{
			Filter:      []string{"pre"},
			Replacement: r.renderCodeBlock,
		},
		md.Rule{
			Filter:      []string{"a"},
			Replacement: renderAnchorLink,
		},
	)
	r.converter = conv

	return r, nil
}

// RenderSection converts one section's node sequence into a single
// Markdown string. Sections with a synthesized title get a heading
// prepended so every document opens with its title.
func (r *Renderer) RenderSection(sec segment.Section) (string, error) {
	var b strings.Builder
	if sec.Synthesized && sec.Title != "" {
		b.WriteString("<h1>")
		b.WriteString(html.EscapeString(sec.Title))
		b.WriteString("</h1>")
	}
	for _, n := range sec.Nodes {
		b.WriteString(content.RenderNode(n))
	}

	markdown, err := r.converter.ConvertString(b.String())
	if err != nil {
		return "", fmt.Errorf("convert section %q: %w", sec.Title, err)
	}

	return normalize(markdown), nil
}

// renderCodeBlock emits a code block with a resolved language tag.
func (r *Renderer) renderCodeBlock(_ string, selec *goquery.Selection, opt *md.Options) *string {
	code := selec
	if inner := selec.Find("code").First(); inner.Length() > 0 {
		code = inner
	}

	declared := codelang.FromClasses(classList(code))
	if declared == "" {
		declared = codelang.FromClasses(classList(selec))
	}

	text := strings.Trim(code.Text(), "\n")
	lang := r.classifier.Resolve(declared, text)

	if opt.CodeBlockStyle == "indented" {
		var b strings.Builder
		b.WriteString("\n\n")
		for _, line := range strings.Split(text, "\n") {
			b.WriteString(indentMarker)
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		return md.String(b.String())
	}

	return md.String("\n\n" + opt.Fence + lang + "\n" + text + "\n" + opt.Fence + "\n\n")
}

// renderAnchorLink turns in-page fragment links into xref placeholders;
// everything else falls through to the default link rule.
func renderAnchorLink(text string, selec *goquery.Selection, _ *md.Options) *string {
	href, ok := selec.Attr("href")
	if !ok || !strings.HasPrefix(href, "#") || len(href) < 2 {
		return nil
	}
	label := strings.TrimSpace(text)
	if label == "" {
		label = href[1:]
	}
	return md.String("[" + label + "]({{xref:" + href[1:] + "}})")
}

func classList(selec *goquery.Selection) []string {
	return strings.Fields(selec.AttrOr("class", ""))
}

// normalize applies whitespace and blank-line cleanup so repeated
// rendering is byte-identical.
func normalize(markdown string) string {
	lines := strings.Split(markdown, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	markdown = strings.Join(lines, "\n")
	markdown = excessiveLinesRe.ReplaceAllString(markdown, "\n\n")
	markdown = strings.TrimSpace(markdown) + "\n"
	return strings.ReplaceAll(markdown, indentMarker, "    ")
}
