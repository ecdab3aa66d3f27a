// Package htmlsanitize strips markup from user-entered text before it is
// stored. Update messages and material fields are plain text; any tags a
// client sends are removed and entities are decoded back to characters.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes every HTML element from s, decodes entities and trims
// surrounding space. Decoding can expose markup that was escaped, so the
// strip-and-decode pass repeats until the text stops changing. The result
// is a fixed point: PlainText(PlainText(s)) == PlainText(s).
func PlainText(s string) string {
	// Every pass that changes the text shortens it, apart from a one-time
	// repair of invalid UTF-8, so len(s)+2 passes always reach the fixed point.
	for limit := len(s) + 2; limit > 0 && s != ""; limit-- {
		next := strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
		if next == s {
			break
		}
		s = next
	}
	return s
}

// PlainTextAll applies PlainText to each element, dropping ones that end up
// empty.
func PlainTextAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := PlainText(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}
