package dom

import "strings"

// Node is one parsed element, or the synthetic document root returned by
// Parse. A tree is built in a single pass and never mutated afterwards, so
// concurrent read-only traversals need no locking.
type Node struct {
	// Tag is the lowercased element name. Empty only for the document root.
	Tag string
	// Attrs preserves source order. Duplicate names within one start tag are
	// dropped at parse time, keeping the first occurrence.
	Attrs []Attr
	// Content holds child elements and text runs in document order.
	Content []Content
}

// Attr is a single name/value attribute pair.
type Attr struct {
	Key string
	Val string
}

// Content is one entry of a node's ordered content: either a child element
// (Child non-nil) or a text run.
type Content struct {
	Child *Node
	Text  string
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// ID returns the id attribute, or the empty string.
func (n *Node) ID() string {
	v, _ := n.Attr("id")
	return v
}

// Classes splits the class attribute on whitespace.
func (n *Node) Classes() []string {
	v, ok := n.Attr("class")
	if !ok {
		return nil
	}
	return strings.Fields(v)
}

// HasClass reports whether the class attribute contains the given token.
func (n *Node) HasClass(class string) bool {
	for _, c := range n.Classes() {
		if c == class {
			return true
		}
	}
	return false
}

// Children returns the element children in document order, skipping text runs.
func (n *Node) Children() []*Node {
	out := make([]*Node, 0, len(n.Content))
	for _, c := range n.Content {
		if c.Child != nil {
			out = append(out, c.Child)
		}
	}
	return out
}

// Walk visits n and every element descendant in pre-order depth-first
// document order. Returning false from fn stops the walk.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Content {
		if c.Child == nil {
			continue
		}
		if !c.Child.Walk(fn) {
			return false
		}
	}
	return true
}

// Text concatenates every text run in the subtree in document order, without
// any whitespace normalization.
func (n *Node) Text() string {
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder) {
	for _, c := range n.Content {
		if c.Child != nil {
			c.Child.writeText(b)
		} else {
			b.WriteString(c.Text)
		}
	}
}

func (n *Node) appendChild(child *Node) {
	n.Content = append(n.Content, Content{Child: child})
}

func (n *Node) appendText(text string) {
	if text == "" {
		return
	}
	n.Content = append(n.Content, Content{Text: text})
}
