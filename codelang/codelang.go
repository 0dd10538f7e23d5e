// Package codelang resolves the language tag for code blocks: declared
// languages are normalized to a canonical tag, undeclared ones are guessed
// from the code text, and a configured default covers the rest.
package codelang

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// classPrefixes are the CSS class prefixes commonly carrying a declared
// language on code elements.
var classPrefixes = []string{"language-", "lang-"}

// Classifier resolves code block languages. The zero value disables
// detection and yields empty tags.
type Classifier struct {
	// Detect enables heuristic detection for blocks without a declared
	// language.
	Detect bool

	// Default is the tag used when nothing is declared and detection is
	// disabled or inconclusive.
	Default string
}

// New creates a Classifier.
func New(detect bool, defaultTag string) *Classifier {
	return &Classifier{Detect: detect, Default: defaultTag}
}

// Resolve returns the language tag for a code block. A declared language is
// normalized; otherwise the code text is analysed when detection is on.
// Resolve never fails; the worst case is the default tag.
func (c *Classifier) Resolve(declared, code string) string {
	if declared != "" {
		if tag := Normalize(declared); tag != "" {
			return tag
		}
		// Unknown but declared: trust the author.
		return strings.ToLower(declared)
	}

	if c.Detect {
		if lexer := lexers.Analyse(code); lexer != nil {
			return canonicalTag(lexer)
		}
	}

	return c.Default
}

// Normalize maps a declared language name to its canonical tag, or ""
// when no known lexer matches.
func Normalize(name string) string {
	lexer := lexers.Get(strings.TrimSpace(name))
	if lexer == nil {
		return ""
	}
	return canonicalTag(lexer)
}

// FromClasses extracts a declared language from CSS class names
// ("language-go", "lang-python"), or "" when none declares one.
func FromClasses(classes []string) string {
	for _, class := range classes {
		for _, prefix := range classPrefixes {
			if rest, ok := strings.CutPrefix(class, prefix); ok && rest != "" {
				return rest
			}
		}
	}
	return ""
}

// canonicalTag prefers the lexer's first alias; aliases are the short,
// fence-friendly names ("go", "python") while Config().Name can be a
// display name ("Go", "Python 3").
func canonicalTag(lexer chroma.Lexer) string {
	cfg := lexer.Config()
	if len(cfg.Aliases) > 0 {
		return cfg.Aliases[0]
	}
	return strings.ToLower(cfg.Name)
}
