// Package weburl provides URL sanitization, canonicalization, and domain
// extraction for web page conversion.
//
// Two concerns live here:
//
//   - Input hygiene: Sanitize normalizes user-supplied URLs (missing scheme,
//     dangerous schemes, fragments), and Validate blocks requests that would
//     reach private or local addresses (SSRF prevention including DNS
//     rebinding protection via IsPrivateIP).
//
//   - Canonical identity: Canonicalize produces the absolute, normalized
//     form of a resource reference used to deduplicate asset downloads, and
//     the domain helpers derive filesystem folder components from a page's
//     host.
package weburl
