package content

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parseFragment(t *testing.T, fragment string) *html.Node {
	t.Helper()
	doc, err := Parse(strings.NewReader(fragment))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestNewFilter_InvalidPattern(t *testing.T) {
	_, err := NewFilter([]string{"div["}, nil)
	if err == nil {
		t.Fatal("expected error for invalid remove pattern")
	}
	if !strings.Contains(err.Error(), "div[") {
		t.Errorf("error should name the offending pattern, got %q", err)
	}

	_, err = NewFilter(nil, []string{":::"})
	if err == nil {
		t.Fatal("expected error for invalid preserve pattern")
	}
}

func TestFilter_RemovesMatched(t *testing.T) {
	f, err := NewFilter([]string{".sidebar", "nav"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	doc := parseFragment(t, `<body>
		<nav>menu</nav>
		<div class="sidebar">ads</div>
		<p>keep me</p>
	</body>`)
	f.Apply(doc)

	rendered := RenderNode(doc)
	if strings.Contains(rendered, "menu") || strings.Contains(rendered, "ads") {
		t.Errorf("removed content still present: %s", rendered)
	}
	if !strings.Contains(rendered, "keep me") {
		t.Errorf("unmatched content was dropped: %s", rendered)
	}
}

func TestFilter_PreserveWinsOverRemove(t *testing.T) {
	f, err := NewFilter([]string{"div"}, []string{".important"})
	if err != nil {
		t.Fatal(err)
	}

	doc := parseFragment(t, `<body>
		<div class="important">stays</div>
		<div class="other">goes</div>
	</body>`)
	f.Apply(doc)

	rendered := RenderNode(doc)
	if !strings.Contains(rendered, "stays") {
		t.Errorf("preserved node was removed: %s", rendered)
	}
	if strings.Contains(rendered, "goes") {
		t.Errorf("removable node survived: %s", rendered)
	}
}

func TestFilter_PreservedDescendantKeepsContainer(t *testing.T) {
	f, err := NewFilter([]string{".wrapper"}, []string{".keep"})
	if err != nil {
		t.Fatal(err)
	}

	doc := parseFragment(t, `<body>
		<div class="wrapper">
			<p>collateral</p>
			<span class="keep">survivor</span>
		</div>
	</body>`)
	f.Apply(doc)

	rendered := RenderNode(doc)
	if !strings.Contains(rendered, "survivor") {
		t.Errorf("preserved descendant was removed: %s", rendered)
	}
}

func TestFilter_DescendantOfPreservedRetained(t *testing.T) {
	f, err := NewFilter([]string{"p"}, []string{"article"})
	if err != nil {
		t.Fatal(err)
	}

	doc := parseFragment(t, `<body>
		<article><p>inside preserved</p></article>
		<p>outside</p>
	</body>`)
	f.Apply(doc)

	rendered := RenderNode(doc)
	if !strings.Contains(rendered, "inside preserved") {
		t.Errorf("descendant of preserved node was removed: %s", rendered)
	}
	if strings.Contains(rendered, "outside") {
		t.Errorf("removable node outside preserve scope survived: %s", rendered)
	}
}

func TestFilter_NoSelectorsPassesThrough(t *testing.T) {
	f, err := NewFilter(nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	doc := parseFragment(t, `<body><p>hello</p><div>world</div></body>`)
	f.Apply(doc)

	rendered := RenderNode(doc)
	for _, want := range []string{"hello", "world"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("pass-through dropped %q: %s", want, rendered)
		}
	}
}

func TestStripNonContent(t *testing.T) {
	doc := parseFragment(t, `<body>
		<script>evil()</script>
		<style>.x{}</style>
		<noscript>fallback</noscript>
		<p>real content</p>
	</body>`)
	StripNonContent(doc)

	rendered := RenderNode(doc)
	for _, gone := range []string{"evil", ".x{}", "fallback"} {
		if strings.Contains(rendered, gone) {
			t.Errorf("non-content %q still present", gone)
		}
	}
	if !strings.Contains(rendered, "real content") {
		t.Error("content was stripped")
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "head title",
			html: "<html><head><title>My Page</title></head><body></body></html>",
			want: "My Page",
		},
		{
			name: "falls back to h1",
			html: "<html><head></head><body><h1>Heading Title</h1></body></html>",
			want: "Heading Title",
		},
		{
			name: "no title at all",
			html: "<html><body><p>text</p></body></html>",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseFragment(t, tt.html)
			if got := Title(doc); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeadingLevel(t *testing.T) {
	doc := parseFragment(t, "<body><h1>a</h1><h3>b</h3><p>c</p></body>")
	var levels []int
	Visit(doc, func(n *html.Node) bool {
		if l := HeadingLevel(n); l > 0 {
			levels = append(levels, l)
		}
		return true
	})
	if len(levels) != 2 || levels[0] != 1 || levels[1] != 3 {
		t.Errorf("heading levels = %v, want [1 3]", levels)
	}
}

func TestText_CollapsesWhitespace(t *testing.T) {
	doc := parseFragment(t, "<body><p>  hello \n\t world  </p></body>")
	p := FindElement(doc, "p")
	if got := Text(p); got != "hello world" {
		t.Errorf("Text() = %q, want %q", got, "hello world")
	}
}
