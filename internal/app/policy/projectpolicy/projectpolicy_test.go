package projectpolicy_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/sitetrack/internal/app/policy/projectpolicy"
	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/auth"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type cast struct {
	admin, owner, otherOwner, engineer, otherEngineer, manager, otherManager primitive.ObjectID
	project                                                                 *models.Project
}

func newCast() cast {
	c := cast{
		admin:         primitive.NewObjectID(),
		owner:         primitive.NewObjectID(),
		otherOwner:    primitive.NewObjectID(),
		engineer:      primitive.NewObjectID(),
		otherEngineer: primitive.NewObjectID(),
		manager:       primitive.NewObjectID(),
		otherManager:  primitive.NewObjectID(),
	}
	c.project = &models.Project{
		ID:          primitive.NewObjectID(),
		HomeownerID: c.owner,
		EngineerIDs: []primitive.ObjectID{c.engineer},
		ManagerIDs:  []primitive.ObjectID{c.manager},
	}
	return c
}

func TestCanAccessProject(t *testing.T) {
	c := newCast()

	tests := []struct {
		name string
		role string
		id   primitive.ObjectID
		want bool
	}{
		{"admin", models.RoleAdmin, c.admin, true},
		{"owner", models.RoleHomeowner, c.owner, true},
		{"other homeowner", models.RoleHomeowner, c.otherOwner, false},
		{"assigned engineer", models.RoleEngineer, c.engineer, true},
		{"unassigned engineer", models.RoleEngineer, c.otherEngineer, false},
		{"assigned manager", models.RoleManager, c.manager, true},
		{"unassigned manager", models.RoleManager, c.otherManager, false},
		{"manager id listed only as engineer", models.RoleManager, c.engineer, false},
		{"unknown role", "visitor", c.owner, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := projectpolicy.CanAccessProject(tc.role, tc.id, c.project); got != tc.want {
				t.Errorf("CanAccessProject = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanMutatePhase(t *testing.T) {
	c := newCast()

	tests := []struct {
		name string
		role string
		id   primitive.ObjectID
		want bool
	}{
		{"admin", models.RoleAdmin, c.admin, true},
		{"assigned engineer", models.RoleEngineer, c.engineer, true},
		{"assigned manager", models.RoleManager, c.manager, true},
		{"unassigned engineer", models.RoleEngineer, c.otherEngineer, false},
		{"owner", models.RoleHomeowner, c.owner, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := projectpolicy.CanMutatePhase(tc.role, tc.id, c.project); got != tc.want {
				t.Errorf("CanMutatePhase = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanDeleteUpdate(t *testing.T) {
	c := newCast()
	c.project.EngineerIDs = append(c.project.EngineerIDs, c.otherEngineer)
	byEngineer := &models.Update{ID: models.NewID(), UserID: c.engineer}

	if !projectpolicy.CanDeleteUpdate(models.RoleAdmin, c.admin, c.project, byEngineer) {
		t.Error("admin should delete any update")
	}
	if !projectpolicy.CanDeleteUpdate(models.RoleEngineer, c.engineer, c.project, byEngineer) {
		t.Error("author should delete own update")
	}
	if projectpolicy.CanDeleteUpdate(models.RoleEngineer, c.otherEngineer, c.project, byEngineer) {
		t.Error("assigned non-author must not delete")
	}
	if projectpolicy.CanDeleteUpdate(models.RoleHomeowner, c.owner, c.project, byEngineer) {
		t.Error("homeowner must not delete")
	}

	// Author who was later unassigned loses delete rights.
	c.project.EngineerIDs = nil
	if projectpolicy.CanDeleteUpdate(models.RoleEngineer, c.engineer, c.project, byEngineer) {
		t.Error("unassigned author must not delete")
	}
}

func TestAuthorizeRead(t *testing.T) {
	c := newCast()

	if err := projectpolicy.AuthorizeRead(projectpolicy.Principal{}, false, c.project); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("anonymous read: got %v, want Unauthorized", err)
	}

	foreign := projectpolicy.Principal{ID: c.otherOwner, Role: models.RoleHomeowner}
	if err := projectpolicy.AuthorizeRead(foreign, true, c.project); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("foreign homeowner read: got %v, want NotFound", err)
	}

	owner := projectpolicy.Principal{ID: c.owner, Role: models.RoleHomeowner}
	if err := projectpolicy.AuthorizeRead(owner, true, c.project); err != nil {
		t.Errorf("owner read: %v", err)
	}
}

func TestAuthorizeMutation(t *testing.T) {
	c := newCast()

	stranger := projectpolicy.Principal{ID: c.otherEngineer, Role: models.RoleEngineer}
	if err := projectpolicy.AuthorizeMutation(stranger, true, c.project); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("unassigned engineer: got %v, want Forbidden", err)
	}

	owner := projectpolicy.Principal{ID: c.owner, Role: models.RoleHomeowner}
	if err := projectpolicy.AuthorizeMutation(owner, true, c.project); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("homeowner: got %v, want Forbidden", err)
	}

	if err := projectpolicy.AuthorizeMutation(projectpolicy.Principal{}, false, c.project); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("anonymous: got %v, want Unauthorized", err)
	}

	eng := projectpolicy.Principal{ID: c.engineer, Role: models.RoleEngineer}
	if err := projectpolicy.AuthorizeMutation(eng, true, c.project); err != nil {
		t.Errorf("assigned engineer: %v", err)
	}
}

func TestAuthorizeDeleteUpdate(t *testing.T) {
	c := newCast()
	c.project.ManagerIDs = append(c.project.ManagerIDs, c.otherManager)
	u := &models.Update{ID: models.NewID(), UserID: c.manager}

	other := projectpolicy.Principal{ID: c.otherManager, Role: models.RoleManager}
	if err := projectpolicy.AuthorizeDeleteUpdate(other, true, c.project, u); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("non-author: got %v, want Forbidden", err)
	}

	author := projectpolicy.Principal{ID: c.manager, Role: models.RoleManager}
	if err := projectpolicy.AuthorizeDeleteUpdate(author, true, c.project, u); err != nil {
		t.Errorf("author: %v", err)
	}
}

func TestFromRequest(t *testing.T) {
	id := primitive.NewObjectID()
	req := httptest.NewRequest("GET", "/", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: id.Hex(), Name: "Asha", Role: "Engineer"})

	who, ok := projectpolicy.FromRequest(req)
	if !ok {
		t.Fatal("expected principal")
	}
	if who.ID != id || who.Role != models.RoleEngineer || who.Name != "Asha" {
		t.Errorf("unexpected principal %+v", who)
	}

	if _, ok := projectpolicy.FromRequest(httptest.NewRequest("GET", "/", nil)); ok {
		t.Error("expected no principal for anonymous request")
	}
}
