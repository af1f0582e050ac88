// Package links discovers listing pages inside search-result markup. It is
// built purely on the dom tree and selector primitives; fetching the pages it
// points at is the caller's concern.
package links

import (
	"github.com/baranw/adscraper/internal/dom"
	"github.com/baranw/adscraper/internal/selector"
)

const (
	resultTableID = "srchrslt-adtable"
	paginationID  = "srchrslt-pagination"
	nextPageClass = "pagination-next"
)

// ListingLinks returns the data-href targets of the result articles in
// document order, deduplicated. Each result li contributes at most its first
// article so gallery duplicates are skipped. A page without the result
// container yields nothing.
func ListingLinks(root *dom.Node) []string {
	container := selector.Find(root, "#"+resultTableID)
	if container == nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, item := range container.Children() {
		if item.Tag != "li" {
			continue
		}
		article := firstArticle(item)
		if article == nil {
			continue
		}
		href, _ := article.Attr("data-href")
		if href != "" && !seen[href] {
			seen[href] = true
			out = append(out, href)
		}
	}
	return out
}

// NextPage returns the href of the next-page anchor, scoped to the
// pagination block when the page has one.
func NextPage(root *dom.Node) (string, bool) {
	scope := selector.Find(root, "#"+paginationID)
	if scope == nil {
		scope = root
	}
	var href string
	scope.Walk(func(n *dom.Node) bool {
		if n.Tag != "a" || !n.HasClass(nextPageClass) {
			return true
		}
		href, _ = n.Attr("href")
		return false
	})
	if href == "" {
		return "", false
	}
	return href, true
}

func firstArticle(n *dom.Node) *dom.Node {
	var found *dom.Node
	n.Walk(func(d *dom.Node) bool {
		if d.Tag == "article" {
			found = d
			return false
		}
		return true
	})
	return found
}
