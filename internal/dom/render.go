package dom

import "strings"

// RenderInner renders the children of node back to markup text. Any
// descendant whose id attribute appears in excludeIDs is dropped together
// with its whole subtree. Void elements render without children or a closing
// tag, and br always renders as a bare <br> regardless of parsed attributes.
// Attribute values are emitted double-quoted exactly as stored; text runs are
// emitted exactly as stored. The result is trimmed of surrounding whitespace.
//
// Exclusion is a node-local decision made before anything of the node is
// emitted, so every node that does render emits all of its attributes.
func RenderInner(node *Node, excludeIDs ...string) string {
	skip := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		skip[id] = true
	}
	var b strings.Builder
	renderContent(&b, node, skip)
	return strings.TrimSpace(b.String())
}

func renderContent(b *strings.Builder, n *Node, skip map[string]bool) {
	for _, c := range n.Content {
		if c.Child != nil {
			renderNode(b, c.Child, skip)
		} else {
			b.WriteString(c.Text)
		}
	}
}

func renderNode(b *strings.Builder, n *Node, skip map[string]bool) {
	if id, ok := n.Attr("id"); ok && skip[id] {
		return
	}
	if n.Tag == "br" {
		b.WriteString("<br>")
		return
	}
	b.WriteByte('<')
	b.WriteString(n.Tag)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(a.Val)
		b.WriteByte('"')
	}
	b.WriteByte('>')
	if voidTags[n.Tag] {
		return
	}
	renderContent(b, n, skip)
	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteByte('>')
}
