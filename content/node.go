package content

import (
	"strings"

	"golang.org/x/net/html"
)

// containerTags are structural elements the segmenter descends into rather
// than treating as opaque content blocks.
var containerTags = map[string]bool{
	"html":    true,
	"body":    true,
	"main":    true,
	"article": true,
	"section": true,
	"div":     true,
}

// HeadingLevel returns 1-6 for h1-h6 element nodes and 0 otherwise.
func HeadingLevel(n *html.Node) int {
	if n == nil || n.Type != html.ElementNode {
		return 0
	}
	if len(n.Data) == 2 && n.Data[0] == 'h' && n.Data[1] >= '1' && n.Data[1] <= '6' {
		return int(n.Data[1] - '0')
	}
	return 0
}

// IsContainer reports whether the segmenter should descend into n instead
// of treating it as a single content block.
func IsContainer(n *html.Node) bool {
	return n.Type == html.ElementNode && containerTags[n.Data]
}

// Text returns the concatenated text content of a node's subtree with
// whitespace runs collapsed to single spaces.
func Text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// Attr returns the value of the named attribute, or "" when absent.
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets or replaces the named attribute on n.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// FindElement returns the first element with the given tag name in
// depth-first order, or nil.
func FindElement(n *html.Node, tag string) *html.Node {
	var result *html.Node
	var find func(*html.Node)
	find = func(node *html.Node) {
		if result != nil {
			return
		}
		if node.Type == html.ElementNode && node.Data == tag {
			result = node
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(n)
	return result
}

// Visit walks the subtree rooted at n in depth-first order, calling fn for
// every element node. Returning false from fn skips that node's children.
func Visit(n *html.Node, fn func(*html.Node) bool) {
	if n.Type == html.ElementNode && !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Visit(c, fn)
	}
}

// RenderNode renders a node and its children back to an HTML string.
func RenderNode(n *html.Node) string {
	var sb strings.Builder
	html.Render(&sb, n)
	return sb.String()
}
