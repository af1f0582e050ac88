// Package listing pulls structured listing fields out of a parsed
// classified-ad page. Every operation is a read-only traversal built on the
// selector matcher, and every missing field is reported as absence, never as
// an error.
package listing

import (
	"regexp"
	"strings"

	"github.com/baranw/adscraper/internal/dom"
	"github.com/baranw/adscraper/internal/selector"
)

const (
	galleryScopeID = "viewad-product"
	breadcrumbID   = "vap-brdcrmb"
	// breadcrumbSentinel is the site-name segment dropped from the front of
	// the category path.
	breadcrumbSentinel = "kleinanzeigen"
	breadcrumbSep      = " > "
	// hiResMarker tags the higher-resolution rendition of a gallery image.
	hiResMarker = "rule=$_59"
)

var userIDRe = regexp.MustCompile(`userId=(\d+)`)

// Select resolves a selector against the tree, nil meaning absence.
func Select(root *dom.Node, sel string) *dom.Node {
	return selector.Find(root, sel)
}

// NormalizeSpace collapses every whitespace run to a single space and trims
// both ends.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Text selects a node and returns its subtree text in document order,
// whitespace-normalized. Absence of the node is distinct from empty text.
func Text(root *dom.Node, sel string) (string, bool) {
	node := selector.Find(root, sel)
	if node == nil {
		return "", false
	}
	return NormalizeSpace(node.Text()), true
}

// ListItems selects a container and returns the normalized text of each
// direct li child, dropping items that normalize to nothing. Direct children
// with other tags are skipped without recursing into them.
func ListItems(root *dom.Node, sel string) []string {
	node := selector.Find(root, sel)
	if node == nil {
		return nil
	}
	var items []string
	for _, child := range node.Children() {
		if child.Tag != "li" {
			continue
		}
		if text := NormalizeSpace(child.Text()); text != "" {
			items = append(items, text)
		}
	}
	return items
}

// AttrPattern selects a node, reads the named attribute, and returns the
// first capture of pattern within it. When the pattern does not match, the
// node's own normalized text is the fallback; absence when neither yields a
// value.
func AttrPattern(root *dom.Node, sel, attr string, pattern *regexp.Regexp) (string, bool) {
	node := selector.Find(root, sel)
	if node == nil {
		return "", false
	}
	val, _ := node.Attr(attr)
	if m := pattern.FindStringSubmatch(val); m != nil {
		return m[1], true
	}
	if text := NormalizeSpace(node.Text()); text != "" {
		return text, true
	}
	return "", false
}

// Images collects gallery image URLs. The walk is scoped to the product
// gallery when present, otherwise the whole tree; img nodes contribute their
// high-resolution attribute when set, else their plain source, deduplicated
// by exact URL. URLs carrying the high-resolution marker form the preferred
// bucket; the plain bucket is returned only when no marked URL exists. The
// two buckets are never mixed.
func Images(root *dom.Node) []string {
	scope := selector.Find(root, "#"+galleryScopeID)
	if scope == nil {
		scope = root
	}
	var primary, fallback []string
	seen := make(map[string]bool)
	scope.Walk(func(n *dom.Node) bool {
		if n.Tag != "img" {
			return true
		}
		url, ok := n.Attr("data-imgsrc")
		if !ok || url == "" {
			url, _ = n.Attr("src")
		}
		url = strings.TrimSpace(url)
		if url == "" || seen[url] {
			return true
		}
		seen[url] = true
		if strings.Contains(url, hiResMarker) {
			primary = append(primary, url)
		} else {
			fallback = append(fallback, url)
		}
		return true
	})
	if len(primary) > 0 {
		return primary
	}
	return fallback
}

// Breadcrumb joins the category path segments. The leading site-name
// sentinel is dropped case-insensitively; absence when nothing remains.
func Breadcrumb(root *dom.Node) (string, bool) {
	node := selector.Find(root, "#"+breadcrumbID)
	if node == nil {
		return "", false
	}
	var parts []string
	for _, child := range node.Children() {
		if text := NormalizeSpace(child.Text()); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) > 0 && strings.EqualFold(parts[0], breadcrumbSentinel) {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, breadcrumbSep), true
}

// UserID extracts the seller's numeric user id from the profile link,
// falling back to the link text.
func UserID(root *dom.Node) (string, bool) {
	return AttrPattern(root,
		"#viewad-contact > div > ul > li:nth-child(1) > i > a",
		"href", userIDRe)
}

// Location joins the street address (trailing comma trimmed) with the
// locality; either part alone also counts.
func Location(root *dom.Node) (string, bool) {
	street, haveStreet := Text(root, "#street-address")
	locality, haveLocality := Text(root, "#viewad-locality")
	if haveStreet {
		street = strings.TrimRight(street, ",")
	}
	switch {
	case haveStreet && street != "" && haveLocality && locality != "":
		return street + ", " + locality, true
	case haveStreet && street != "":
		return street, true
	case haveLocality && locality != "":
		return locality, true
	}
	return "", false
}
