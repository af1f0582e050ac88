package dom

import (
	"html"
	"strings"
)

// decodeNamedRef resolves a "&name;" candidate against the standard named
// character reference table. Unknown names stay verbatim. A partial match,
// where only a prefix of the name is a known entity, would leave the tail of
// the candidate (ending in ';') in the decoded output; those are rejected so
// that only whole-name resolutions are accepted.
func decodeNamedRef(ref string) string {
	out := html.UnescapeString(ref)
	if out == ref || strings.HasSuffix(out, ";") {
		return ref
	}
	return out
}
