package content

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// Parse parses an HTML document into a content tree.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}

// Body returns the document's body element. html.Parse always synthesizes
// one, so a nil result only happens for hand-built trees.
func Body(doc *html.Node) *html.Node {
	return FindElement(doc, "body")
}

// Title extracts the page title from the head, falling back to the first
// h1 in the document.
func Title(doc *html.Node) string {
	if t := FindElement(doc, "title"); t != nil && t.FirstChild != nil {
		if title := strings.TrimSpace(t.FirstChild.Data); title != "" {
			return title
		}
	}
	var title string
	Visit(doc, func(n *html.Node) bool {
		if title == "" && HeadingLevel(n) == 1 {
			title = Text(n)
		}
		return title == ""
	})
	return title
}

// ExtractReadable runs readability extraction over raw HTML and reparses
// the extracted article content. When extraction fails or yields nothing,
// the error is returned so the caller can fall back to the full document.
func ExtractReadable(rawHTML []byte, pageURL *url.URL) (*html.Node, error) {
	article, err := readability.FromReader(strings.NewReader(string(rawHTML)), pageURL)
	if err != nil {
		return nil, fmt.Errorf("readability extraction: %w", err)
	}
	if strings.TrimSpace(article.Content) == "" {
		return nil, fmt.Errorf("readability extraction: empty article")
	}
	return Parse(strings.NewReader(article.Content))
}
