// internal/app/policy/projectpolicy/projectpolicy.go
package projectpolicy

import (
	"net/http"
	"strings"

	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/authz"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Principal is the authenticated caller as seen by the policy checks.
type Principal struct {
	ID   primitive.ObjectID
	Name string
	Role string
}

// FromRequest returns the caller, or ok=false when nobody is signed in.
func FromRequest(r *http.Request) (Principal, bool) {
	role, name, uid, ok := authz.UserCtx(r)
	if !ok {
		return Principal{}, false
	}
	return Principal{ID: uid, Name: name, Role: role}, true
}

// CanAccessProject reports whether the user may read the project:
// - Admins always can
// - Homeowners only their own project
// - Engineers and managers only projects they are assigned to
func CanAccessProject(role string, userID primitive.ObjectID, p *models.Project) bool {
	if p == nil {
		return false
	}
	switch strings.ToLower(role) {
	case models.RoleAdmin:
		return true
	case models.RoleHomeowner:
		return p.HomeownerID == userID
	case models.RoleEngineer:
		return containsID(p.EngineerIDs, userID)
	case models.RoleManager:
		return containsID(p.ManagerIDs, userID)
	}
	return false
}

// IsAssignedStaff reports whether the user is on the project's engineer or
// manager list, matching the list for their role.
func IsAssignedStaff(role string, userID primitive.ObjectID, p *models.Project) bool {
	if p == nil {
		return false
	}
	switch strings.ToLower(role) {
	case models.RoleEngineer:
		return containsID(p.EngineerIDs, userID)
	case models.RoleManager:
		return containsID(p.ManagerIDs, userID)
	}
	return false
}

// CanMutatePhase reports whether the user may post updates, replace materials,
// or change phase status. Homeowners never can.
func CanMutatePhase(role string, userID primitive.ObjectID, p *models.Project) bool {
	role = strings.ToLower(role)
	if !models.IsStaffRole(role) || p == nil {
		return false
	}
	if role == models.RoleAdmin {
		return true
	}
	return IsAssignedStaff(role, userID, p)
}

// CanDeleteUpdate reports whether the user may delete the given update.
// Admins can delete any update; assigned staff only their own.
func CanDeleteUpdate(role string, userID primitive.ObjectID, p *models.Project, u *models.Update) bool {
	if p == nil || u == nil {
		return false
	}
	role = strings.ToLower(role)
	if role == models.RoleAdmin {
		return true
	}
	return IsAssignedStaff(role, userID, p) && u.UserID == userID
}

// AuthorizeRead returns nil when the caller may read the project. Denials are
// reported as NotFound so callers cannot discover which project ids exist.
func AuthorizeRead(who Principal, ok bool, p *models.Project) error {
	if !ok {
		return apperr.Unauthorized("")
	}
	if !CanAccessProject(who.Role, who.ID, p) {
		return apperr.NotFound("project not found")
	}
	return nil
}

// AuthorizeMutation returns nil when the caller may change phase state.
// Any signed-in caller who may not write gets Forbidden, including staff not
// assigned to the project.
func AuthorizeMutation(who Principal, ok bool, p *models.Project) error {
	if !ok {
		return apperr.Unauthorized("")
	}
	if p == nil {
		return apperr.NotFound("project not found")
	}
	if !CanMutatePhase(who.Role, who.ID, p) {
		return apperr.Forbidden("you cannot update this project")
	}
	return nil
}

// AuthorizeDeleteUpdate returns nil when the caller may delete the update.
func AuthorizeDeleteUpdate(who Principal, ok bool, p *models.Project, u *models.Update) error {
	if err := AuthorizeMutation(who, ok, p); err != nil {
		return err
	}
	if !CanDeleteUpdate(who.Role, who.ID, p, u) {
		return apperr.Forbidden("you can only delete your own updates")
	}
	return nil
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	if id.IsZero() {
		return false
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
