// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/sitetrack/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false. This ensures callers can trust that
// ok=true means a valid, authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session: fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == "admin"
}

// IsManager reports whether the current request's user is a manager.
func IsManager(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == "manager"
}

// IsEngineer reports whether the current request's user is an engineer.
func IsEngineer(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == "engineer"
}

// IsHomeowner reports whether the current request's user is a homeowner.
func IsHomeowner(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == "homeowner"
}

// IsStaff reports whether the current user records site progress
// (admin, manager, or engineer).
func IsStaff(r *http.Request) bool {
	return HasAnyRole(r, "admin", "manager", "engineer")
}
