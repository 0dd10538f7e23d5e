package weburl

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

// Pre-compiled CIDR networks for private/reserved IP ranges.
// These are parsed once at package initialization for efficiency.
var (
	cgnat    *net.IPNet // 100.64.0.0/10 - Carrier-grade NAT
	v6unique *net.IPNet // fc00::/7 - IPv6 unique local
	v6link   *net.IPNet // fe80::/10 - IPv6 link-local
)

// dangerousSchemes are URL schemes that must never be fetched or emitted.
var dangerousSchemes = map[string]bool{
	"javascript": true,
	"data":       true,
	"vbscript":   true,
	"file":       true,
	"about":      true,
	"chrome":     true,
	"resource":   true,
}

func init() {
	var err error

	_, cgnat, err = net.ParseCIDR("100.64.0.0/10")
	if err != nil {
		panic("invalid CGNAT CIDR: " + err.Error())
	}

	_, v6unique, err = net.ParseCIDR("fc00::/7")
	if err != nil {
		panic("invalid IPv6 unique local CIDR: " + err.Error())
	}

	_, v6link, err = net.ParseCIDR("fe80::/10")
	if err != nil {
		panic("invalid IPv6 link-local CIDR: " + err.Error())
	}
}

// Sanitize normalizes a user-supplied URL: adds a https scheme when missing,
// rejects dangerous schemes, lowercases the host, and strips the fragment.
// Returns an error when the URL cannot be made into a fetchable http(s) URL.
func Sanitize(rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}

	if scheme, _, found := strings.Cut(raw, ":"); found {
		if dangerousSchemes[strings.ToLower(scheme)] {
			return "", fmt.Errorf("scheme %q is not allowed", scheme)
		}
	}

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" || !strings.Contains(parsed.Hostname(), ".") {
		return "", fmt.Errorf("invalid host %q", parsed.Host)
	}

	parsed.Fragment = ""
	parsed.Host = strings.ToLower(strings.Trim(parsed.Host, "."))

	return parsed.String(), nil
}

// Validate checks a URL for SSRF safety. It requires an http(s) scheme and
// blocks localhost, private IPs, and local-only domains.
func Validate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("only http and https URLs are allowed")
	}

	host := parsed.Hostname()
	lowHost := strings.ToLower(host)
	if lowHost == "localhost" || lowHost == "127.0.0.1" || lowHost == "::1" {
		return fmt.Errorf("localhost URLs are not allowed")
	}
	if strings.HasSuffix(lowHost, ".local") || strings.HasSuffix(lowHost, ".internal") {
		return fmt.Errorf("local domain URLs are not allowed")
	}

	if ip := net.ParseIP(host); ip != nil {
		if IsPrivateIP(ip) {
			return fmt.Errorf("private IP addresses are not allowed")
		}
	}

	return nil
}

// IsPrivateIP checks if an IP is in private/reserved ranges.
// It handles IPv4, IPv6, and IPv6-mapped IPv4 addresses.
func IsPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}

	if v4 := ip.To4(); v4 != nil {
		ip = v4
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
			return true
		}
	}

	if cgnat.Contains(ip) || v6unique.Contains(ip) || v6link.Contains(ip) {
		return true
	}

	return false
}

// Canonicalize resolves a resource reference to its canonical absolute form:
// resolved against base when relative, fragment dropped, host lowercased,
// query keys sorted. Assets are deduplicated by this canonical form.
func Canonicalize(ref string, base *url.URL) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("invalid reference: %w", err)
	}
	if dangerousSchemes[strings.ToLower(parsed.Scheme)] {
		return "", fmt.Errorf("scheme %q is not allowed", parsed.Scheme)
	}

	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("reference %q is not absolute", ref)
	}

	parsed.Fragment = ""
	parsed.Host = strings.ToLower(parsed.Host)

	if parsed.RawQuery != "" {
		parsed.RawQuery = sortQuery(parsed.Query())
	}

	return parsed.String(), nil
}

// sortQuery re-encodes query values with sorted keys for stable identity.
func sortQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vs := values[k]
		sort.Strings(vs)
		for _, v := range vs {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// LastPathSegment returns the final path segment of a URL, or "" when the
// path is empty. Used to derive local filenames for downloaded assets.
func LastPathSegment(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}
