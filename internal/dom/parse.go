package dom

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// voidTags can never have children or a closing tag.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// rawTextTags have bodies that are raw character data up to the matching
// close tag, with no nested markup or character references.
var rawTextTags = map[string]bool{"script": true, "style": true}

// Parse builds a document tree from markup text. It is total: malformed
// input degrades to a best-effort tree and never produces an error. Stray
// end tags are ignored, unbalanced elements are implicitly closed, comments
// and declarations are discarded, and unresolvable character references are
// kept verbatim.
func Parse(markup string) *Node {
	root := &Node{}
	p := &parser{input: markup, stack: []*Node{root}}
	p.run()
	return root
}

type parser struct {
	input string
	pos   int
	stack []*Node
	// raw is the name of the open script/style element, while its body is
	// being consumed as raw text.
	raw string
}

func (p *parser) top() *Node { return p.stack[len(p.stack)-1] }

func (p *parser) run() {
	for p.pos < len(p.input) {
		if p.raw != "" {
			p.consumeRawText()
			continue
		}
		rel := strings.IndexByte(p.input[p.pos:], '<')
		if rel < 0 {
			p.top().appendText(decodeText(p.input[p.pos:]))
			p.pos = len(p.input)
			return
		}
		if rel > 0 {
			p.top().appendText(decodeText(p.input[p.pos : p.pos+rel]))
			p.pos += rel
		}
		p.consumeMarkup()
	}
}

// consumeMarkup handles one construct starting at '<'.
func (p *parser) consumeMarkup() {
	rest := p.input[p.pos:]
	switch {
	case strings.HasPrefix(rest, "<!--"):
		p.consumeComment()
	case strings.HasPrefix(rest, "</"):
		p.consumeEndTag()
	case strings.HasPrefix(rest, "<!"), strings.HasPrefix(rest, "<?"):
		p.consumeDeclaration()
	case len(rest) > 1 && isTagNameStart(rest[1]):
		p.consumeStartTag()
	default:
		// A lone '<' is literal text.
		p.top().appendText("<")
		p.pos++
	}
}

func (p *parser) consumeComment() {
	end := strings.Index(p.input[p.pos+4:], "-->")
	if end < 0 {
		p.pos = len(p.input)
		return
	}
	p.pos += 4 + end + 3
}

// consumeDeclaration discards <!doctype …> and <?…> constructs.
func (p *parser) consumeDeclaration() {
	end := strings.IndexByte(p.input[p.pos:], '>')
	if end < 0 {
		p.pos = len(p.input)
		return
	}
	p.pos += end + 1
}

func (p *parser) consumeEndTag() {
	end := strings.IndexByte(p.input[p.pos:], '>')
	if end < 0 {
		// Truncated construct at end of input is literal text.
		p.top().appendText(p.input[p.pos:])
		p.pos = len(p.input)
		return
	}
	inner := p.input[p.pos+2 : p.pos+end]
	p.pos += end + 1
	name := strings.ToLower(strings.TrimSpace(inner))
	if i := strings.IndexFunc(name, isSpace); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return
	}
	p.closeElement(name)
}

// closeElement pops the stack through the nearest open element with the given
// tag, implicitly closing anything above it. Without a match the stack is
// left untouched.
func (p *parser) closeElement(name string) {
	for i := len(p.stack) - 1; i > 0; i-- {
		if p.stack[i].Tag == name {
			p.stack = p.stack[:i]
			return
		}
	}
}

func (p *parser) consumeStartTag() {
	start := p.pos
	i := p.pos + 1
	for i < len(p.input) && isTagNameByte(p.input[i]) {
		i++
	}
	name := strings.ToLower(p.input[p.pos+1 : i])

	node := &Node{Tag: name}
	selfClosing := false
	for {
		for i < len(p.input) && isSpace(rune(p.input[i])) {
			i++
		}
		if i >= len(p.input) {
			// Unterminated tag at end of input: keep it as literal text.
			p.top().appendText(p.input[start:])
			p.pos = len(p.input)
			return
		}
		if p.input[i] == '>' {
			i++
			break
		}
		if p.input[i] == '/' {
			if i+1 < len(p.input) && p.input[i+1] == '>' {
				selfClosing = true
				i += 2
				break
			}
			i++
			continue
		}
		var attr Attr
		attr, i = p.parseAttr(i)
		if attr.Key != "" {
			if _, dup := node.Attr(attr.Key); !dup {
				node.Attrs = append(node.Attrs, attr)
			}
		}
	}
	p.pos = i

	p.top().appendChild(node)
	if selfClosing || voidTags[name] {
		return
	}
	p.stack = append(p.stack, node)
	if rawTextTags[name] {
		p.raw = name
	}
}

// parseAttr reads one attribute starting at i and returns it with the new
// scan position. Values may be double-quoted, single-quoted, or bare;
// character references inside values are decoded.
func (p *parser) parseAttr(i int) (Attr, int) {
	s := p.input
	keyStart := i
	for i < len(s) && !isSpace(rune(s[i])) && s[i] != '=' && s[i] != '>' && s[i] != '/' {
		i++
	}
	key := strings.ToLower(s[keyStart:i])
	for i < len(s) && isSpace(rune(s[i])) {
		i++
	}
	if i >= len(s) || s[i] != '=' {
		return Attr{Key: key}, i
	}
	i++
	for i < len(s) && isSpace(rune(s[i])) {
		i++
	}
	if i >= len(s) {
		return Attr{Key: key}, i
	}
	if q := s[i]; q == '"' || q == '\'' {
		i++
		end := strings.IndexByte(s[i:], q)
		if end < 0 {
			val := decodeText(s[i:])
			return Attr{Key: key, Val: val}, len(s)
		}
		val := decodeText(s[i : i+end])
		return Attr{Key: key, Val: val}, i + end + 1
	}
	valStart := i
	for i < len(s) && !isSpace(rune(s[i])) && s[i] != '>' {
		i++
	}
	return Attr{Key: key, Val: decodeText(s[valStart:i])}, i
}

// consumeRawText swallows everything up to the matching </script> or
// </style>, appending it as a single undecoded text run.
func (p *parser) consumeRawText() {
	end := findCloseTag(p.input, p.pos, p.raw)
	if end < 0 {
		p.top().appendText(p.input[p.pos:])
		p.pos = len(p.input)
		p.raw = ""
		return
	}
	p.top().appendText(p.input[p.pos:end])
	p.pos = end
	p.raw = ""
}

// findCloseTag locates "</name" (any case) followed by a tag-ending byte.
// Matching is done against s itself; a lowered copy would shift byte offsets
// whenever the raw text contains runes whose lowercase form has a different
// length.
func findCloseTag(s string, from int, name string) int {
	for i := from; ; {
		j := strings.Index(s[i:], "</")
		if j < 0 {
			return -1
		}
		at := i + j
		after := at + 2 + len(name)
		if after > len(s) {
			return -1
		}
		if strings.EqualFold(s[at+2:after], name) {
			if after == len(s) {
				return at
			}
			if c := s[after]; c == '>' || c == '/' || isSpace(rune(c)) {
				return at
			}
		}
		i = at + 1
	}
}

func isTagNameStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isTagNameByte(c byte) bool {
	return isTagNameStart(c) || (c >= '0' && c <= '9') || c == '-' || c == ':'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
}

// decodeText resolves character references in a text span. Named references
// resolve against the standard entity table, numeric references decode to
// their code point, and anything unresolvable stays verbatim.
func decodeText(s string) string {
	amp := strings.IndexByte(s, '&')
	if amp < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(s[:amp])
	for i := amp; i < len(s); {
		if s[i] != '&' {
			next := strings.IndexByte(s[i:], '&')
			if next < 0 {
				b.WriteString(s[i:])
				break
			}
			b.WriteString(s[i : i+next])
			i += next
			continue
		}
		semi := strings.IndexByte(s[i+1:], ';')
		if semi < 0 {
			b.WriteString(s[i:])
			break
		}
		// A second '&' before the ';' starts a new candidate; the prefix
		// is not a reference and stays verbatim.
		if amp2 := strings.IndexByte(s[i+1:i+1+semi], '&'); amp2 >= 0 {
			b.WriteString(s[i : i+1+amp2])
			i += 1 + amp2
			continue
		}
		ref := s[i : i+semi+2]
		b.WriteString(decodeRef(ref))
		i += semi + 2
	}
	return b.String()
}

// decodeRef decodes one "&…;" candidate, returning it unchanged when it is
// not a well-formed reference.
func decodeRef(ref string) string {
	body := ref[1 : len(ref)-1]
	if body == "" {
		return ref
	}
	if body[0] == '#' {
		return decodeNumericRef(ref, body[1:])
	}
	return decodeNamedRef(ref)
}

func decodeNumericRef(ref, digits string) string {
	base := 10
	if digits != "" && (digits[0] == 'x' || digits[0] == 'X') {
		base = 16
		digits = digits[1:]
	}
	if digits == "" {
		return ref
	}
	n, err := strconv.ParseInt(digits, base, 32)
	if err != nil || !utf8.ValidRune(rune(n)) {
		return ref
	}
	return string(rune(n))
}
