// Package content provides the parsed content tree and the selector-based
// filtering applied to it before segmentation.
//
// The tree is the html.Node DOM produced by golang.org/x/net/html: nodes
// are exclusively owned by their parent and the tree is acyclic, so the
// pipeline can move nodes between sections without bookkeeping.
//
// Filtering happens in two layers. StripNonContent always removes elements
// that can never contribute to a document (script, style, noscript, and
// friends). The configurable Filter then applies remove/preserve CSS
// selector rules compiled once at load time; preserve rules win over remove
// rules, and a removed container keeps any preserved descendants.
package content
