// internal/app/system/authz/roles.go
package authz

import (
	"net/http"
	"slices"
	"strings"
)

// HasAnyRole reports whether the signed-in user holds one of roles.
// Comparison is case-insensitive and ignores surrounding spaces.
func HasAnyRole(r *http.Request, roles ...string) bool {
	cur, ok := Role(r)
	if !ok {
		return false
	}
	return slices.ContainsFunc(roles, func(want string) bool {
		return strings.ToLower(strings.TrimSpace(want)) == cur
	})
}

// HasRole is HasAnyRole for a single role.
func HasRole(r *http.Request, role string) bool {
	return HasAnyRole(r, role)
}

// Role returns the signed-in user's role and whether anyone is signed in.
func Role(r *http.Request) (string, bool) {
	role, _, _, ok := UserCtx(r)
	return role, ok
}
