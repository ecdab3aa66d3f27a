// Package normalize cleans user-supplied identifiers before they are stored
// or compared.
package normalize

import (
	"strings"
	"unicode"
)

// Name trims surrounding whitespace and preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Mobile removes all whitespace so "98765 43210" and "9876543210" are the
// same login.
func Mobile(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Role lowercases and trims a role name.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status lowercases and trims a status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a query parameter value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
