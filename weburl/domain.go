package weburl

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// DomainParts holds the components of a hostname split on the public suffix
// boundary. For "docs.api.example.co.uk": Subdomain="docs.api",
// Domain="example", Suffix="co.uk".
type DomainParts struct {
	Subdomain string
	Domain    string
	Suffix    string
}

// Registrable returns the registrable domain ("example.co.uk"), or just the
// bare domain when no public suffix applies.
func (p DomainParts) Registrable() string {
	if p.Suffix == "" {
		return p.Domain
	}
	return p.Domain + "." + p.Suffix
}

// SplitHost splits a hostname into subdomain, domain, and public suffix
// using the public suffix list. Hosts without a recognized suffix (bare
// names, IPs) come back with everything in Domain.
func SplitHost(host string) DomainParts {
	host = strings.ToLower(strings.Trim(host, "."))
	if host == "" {
		return DomainParts{}
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return DomainParts{Domain: host}
	}

	var parts DomainParts
	if i := strings.IndexByte(etld1, '.'); i >= 0 {
		parts.Domain = etld1[:i]
		parts.Suffix = etld1[i+1:]
	} else {
		parts.Domain = etld1
	}
	if host != etld1 {
		parts.Subdomain = strings.TrimSuffix(host, "."+etld1)
	}
	return parts
}

// SanitizeDomainName makes a domain component safe for filesystem use.
// Characters outside [a-z0-9._-] are replaced with the replacement string,
// and a trailing "hyphen-dot-suffix" artifact collapses to "hyphen-suffix".
func SanitizeDomainName(name, replacement string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteString(replacement)
		}
	}
	sanitized := b.String()

	// "trailing-.com" style artifacts become "trailing-com"
	for {
		i := strings.Index(sanitized, "-.")
		if i < 0 {
			break
		}
		sanitized = sanitized[:i+1] + sanitized[i+2:]
	}

	return strings.Trim(sanitized, "_")
}

// BuildDomainPath derives the folder path for a page from its URL:
// an optional subdomain component followed by the registrable domain,
// each sanitized. Falls back to the supplied fallback folder when the
// URL has no usable domain.
func BuildDomainPath(rawURL string, includeSubdomains bool, replacement, fallback string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}

	host := parsed.Hostname()
	if host == "localhost" {
		return "localhost"
	}

	parts := SplitHost(host)
	if parts.Domain == "" {
		return fallback
	}

	var components []string
	if includeSubdomains && parts.Subdomain != "" {
		if sub := SanitizeDomainName(parts.Subdomain, replacement); sub != "" {
			components = append(components, sub)
		}
	}

	domain := SanitizeDomainName(parts.Registrable(), replacement)
	if domain == "" {
		return fallback
	}
	components = append(components, domain)

	return strings.Join(components, "/")
}
