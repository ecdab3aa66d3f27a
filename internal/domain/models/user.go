// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a user can hold. Admins are global; everyone else is scoped to the
// projects they are assigned to (or own, for homeowners).
const (
	RoleAdmin     = "admin"
	RoleManager   = "manager"
	RoleEngineer  = "engineer"
	RoleHomeowner = "homeowner"
)

// User is an account that can sign in with its mobile number.
type User struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Mobile string             `bson:"mobile" json:"mobile"`
	Role   string             `bson:"role" json:"role"` // admin | manager | engineer | homeowner

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleEngineer, RoleHomeowner:
		return true
	}
	return false
}

// IsStaffRole reports whether role is allowed to record phase progress.
func IsStaffRole(role string) bool {
	return role == RoleAdmin || role == RoleManager || role == RoleEngineer
}
