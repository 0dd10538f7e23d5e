package index

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveXrefs_CrossDocument(t *testing.T) {
	docs := []*Document{
		{Ordinal: 0, Title: "Intro", Path: "docs/intro.md", Body: "See [setup]({{xref:setup-guide}})."},
		{Ordinal: 1, Title: "Setup", Path: "docs/setup.md", Body: "Back to [intro]({{xref:overview}}).", Anchors: []string{"setup-guide"}},
	}
	docs[0].Anchors = []string{"overview"}

	New(Config{}).ResolveXrefs(docs)

	assert.Equal(t, "See [setup](setup.md#setup-guide).", docs[0].Body)
	assert.Equal(t, "Back to [intro](intro.md#overview).", docs[1].Body)
	assert.Equal(t, []string{"docs/setup.md"}, docs[0].CrossRefs)
	assert.Equal(t, []string{"docs/intro.md"}, docs[1].CrossRefs)
}

func TestResolveXrefs_SameDocumentBecomesFragment(t *testing.T) {
	docs := []*Document{
		{Title: "Intro", Path: "intro.md", Body: "Jump to [details]({{xref:details}}).", Anchors: []string{"details"}},
	}

	New(Config{}).ResolveXrefs(docs)

	assert.Equal(t, "Jump to [details](#details).", docs[0].Body)
	assert.Empty(t, docs[0].CrossRefs)
}

func TestResolveXrefs_UnknownAnchorDegradesToFragment(t *testing.T) {
	docs := []*Document{
		{Title: "Intro", Path: "intro.md", Body: "See [missing]({{xref:nowhere}})."},
	}

	New(Config{}).ResolveXrefs(docs)

	assert.Equal(t, "See [missing](#nowhere).", docs[0].Body)
}

func TestResolveXrefs_DifferentDirectories(t *testing.T) {
	docs := []*Document{
		{Title: "Intro", Path: "a/intro.md", Body: "See [other]({{xref:target}})."},
		{Title: "Other", Path: "b/other.md", Body: "", Anchors: []string{"target"}},
	}

	New(Config{}).ResolveXrefs(docs)

	assert.Equal(t, "See [other](../b/other.md#target).", docs[0].Body)
}

func TestBuildReadme_ListsDocumentsInOrder(t *testing.T) {
	docs := []*Document{
		{Ordinal: 0, Title: "Intro", Path: "docs/intro.md"},
		{Ordinal: 1, Title: "Setup", Path: "docs/setup.md"},
	}

	readme, err := New(Config{}).BuildReadme(docs, "My Page", "https://example.com/page")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(readme, "# My Page\n"))
	assert.Contains(t, readme, "> Source: <https://example.com/page>")

	intro := strings.Index(readme, "- [Intro](intro.md)")
	setup := strings.Index(readme, "- [Setup](setup.md)")
	require.NotEqual(t, -1, intro)
	require.NotEqual(t, -1, setup)
	assert.Less(t, intro, setup)
}

func TestBuildReadme_TOCNestsHeadings(t *testing.T) {
	docs := []*Document{
		{
			Ordinal: 0,
			Title:   "Setup",
			Path:    "setup.md",
			Body:    "# Setup\n\n## Install\n\ntext\n\n## Configure\n\n### Advanced\n\ntext\n",
		},
	}

	readme, err := New(Config{TOCEnabled: true, TOCMaxDepth: 2}).BuildReadme(docs, "Guide", "")
	require.NoError(t, err)

	assert.Contains(t, readme, "- [Setup](setup.md)")
	assert.Contains(t, readme, "  - [Install](setup.md#install)")
	assert.Contains(t, readme, "  - [Configure](setup.md#configure)")
	assert.NotContains(t, readme, "Advanced")
}

func TestBuildReadme_EmptyTitleFallsBack(t *testing.T) {
	readme, err := New(Config{}).BuildReadme(nil, "", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(readme, "# Table of Contents\n"))
}

func TestBuildReadme_OrphanDocumentFails(t *testing.T) {
	docs := []*Document{
		{Ordinal: 0, Title: "Intro", Path: "intro.md"},
		{Ordinal: 1, Title: "Lost", Path: ""},
	}

	_, err := New(Config{}).BuildReadme(docs, "Page", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOrphanSection))
	assert.Contains(t, err.Error(), "Lost")
}

func TestHeadings_ExtractsLevelsAndText(t *testing.T) {
	headings := New(Config{}).Headings("# One\n\ntext\n\n## Two *emphasized*\n\n### Three\n")
	require.Len(t, headings, 3)
	assert.Equal(t, Heading{Level: 1, Text: "One"}, headings[0])
	assert.Equal(t, Heading{Level: 2, Text: "Two emphasized"}, headings[1])
	assert.Equal(t, Heading{Level: 3, Text: "Three"}, headings[2])
}

func TestBuildReadme_UntitledDocumentFallsBackToFilename(t *testing.T) {
	docs := []*Document{
		{Ordinal: 0, Title: "", Path: "getting-started.md"},
	}

	readme, err := New(Config{}).BuildReadme(docs, "Page", "")
	require.NoError(t, err)
	assert.Contains(t, readme, "- [Getting Started](getting-started.md)")
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Install", "install"},
		{"Getting Started", "getting-started"},
		{"What's New?", "whats-new"},
		{"C++ & Go", "c--go"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRelativePath(t *testing.T) {
	tests := []struct {
		from, to, want string
	}{
		{"intro.md", "setup.md", "setup.md"},
		{"docs/intro.md", "docs/setup.md", "setup.md"},
		{"a/intro.md", "b/other.md", "../b/other.md"},
		{"a/b/deep.md", "a/top.md", "../top.md"},
	}
	for _, tt := range tests {
		if got := relativePath(tt.from, tt.to); got != tt.want {
			t.Errorf("relativePath(%q, %q) = %q, want %q", tt.from, tt.to, got, tt.want)
		}
	}
}
