// Package selector matches a constrained, id-anchored child-path query
// language against parsed document trees. A selector is a '>'-separated
// sequence of steps; the first must be "#id", every later step is
// "tag?(.class)*(:nth-child(N))?" and narrows strictly to the direct
// children of the node the previous step produced. Resolution never errors:
// any failure along the chain yields absence.
package selector

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/baranw/adscraper/internal/dom"
)

var nthChildRe = regexp.MustCompile(`:nth-child\((\d+)\)$`)

// Selector is a compiled child-path query.
type Selector struct {
	id    string
	steps []step
	valid bool
}

// step is one simple-selector constraint. nth is 1-based, 0 when absent.
type step struct {
	tag     string
	classes []string
	nth     int
}

// Compile parses a selector expression. The second return is false for
// expressions the grammar rejects (no "#id" anchor, or an empty step); such
// selectors simply never match, mirroring the absence-not-error contract.
func Compile(expr string) (Selector, bool) {
	parts := strings.Split(expr, ">")
	first := strings.TrimSpace(parts[0])
	if !strings.HasPrefix(first, "#") || len(first) < 2 {
		return Selector{}, false
	}
	sel := Selector{id: first[1:], valid: true}
	for _, part := range parts[1:] {
		st, ok := parseStep(part)
		if !ok {
			return Selector{}, false
		}
		sel.steps = append(sel.steps, st)
	}
	return sel, true
}

// parseStep rejects steps with no tag, class, or nth-child clause.
func parseStep(part string) (step, bool) {
	part = strings.TrimSpace(part)
	var st step
	if m := nthChildRe.FindStringSubmatch(part); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return step{}, false
		}
		st.nth = n
		part = strings.TrimSpace(part[:len(part)-len(m[0])])
	}
	segments := strings.Split(part, ".")
	st.tag = segments[0]
	for _, seg := range segments[1:] {
		if seg != "" {
			st.classes = append(st.classes, seg)
		}
	}
	if st.tag == "" && len(st.classes) == 0 && st.nth == 0 {
		return step{}, false
	}
	return st, true
}

// Find evaluates the selector against the tree rooted at root. It returns
// nil when the anchor id does not exist or any step fails.
func (s Selector) Find(root *dom.Node) *dom.Node {
	if !s.valid || root == nil {
		return nil
	}
	node := findByID(root, s.id)
	if node == nil {
		return nil
	}
	for _, st := range s.steps {
		node = st.apply(node)
		if node == nil {
			return nil
		}
	}
	return node
}

// Find compiles and evaluates expr in one call.
func Find(root *dom.Node, expr string) *dom.Node {
	sel, ok := Compile(expr)
	if !ok {
		return nil
	}
	return sel.Find(root)
}

// apply picks the next node among the direct children of node, or nil.
func (st step) apply(node *dom.Node) *dom.Node {
	children := node.Children()
	if st.nth > 0 {
		if st.nth > len(children) {
			return nil
		}
		candidate := children[st.nth-1]
		if !st.matches(candidate) {
			return nil
		}
		return candidate
	}
	for _, child := range children {
		if st.matches(child) {
			return child
		}
	}
	return nil
}

func (st step) matches(n *dom.Node) bool {
	if st.tag != "" && n.Tag != st.tag {
		return false
	}
	if len(st.classes) == 0 {
		return true
	}
	have := n.Classes()
	for _, want := range st.classes {
		found := false
		for _, c := range have {
			if c == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// findByID returns the first node in pre-order depth-first document order
// whose id attribute equals id exactly.
func findByID(root *dom.Node, id string) *dom.Node {
	var match *dom.Node
	root.Walk(func(n *dom.Node) bool {
		if v, ok := n.Attr("id"); ok && v == id {
			match = n
			return false
		}
		return true
	})
	return match
}
