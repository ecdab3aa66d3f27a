// internal/app/store/projects/projectstore.go
package projectstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when the project does not exist.
	ErrNotFound = apperr.NotFound("project not found")
	// ErrPhaseNotFound is returned when neither the phase id nor name matches.
	ErrPhaseNotFound = apperr.NotFound("phase not found")
	// ErrUpdateNotFound is returned when deleting an update that is not there.
	ErrUpdateNotFound = apperr.NotFound("update not found")
	// ErrConcurrentUpdate is returned when a whole-document write keeps losing
	// races with other writers.
	ErrConcurrentUpdate = apperr.Conflict("project was modified concurrently; retry")
)

// maxAttempts bounds the optimistic retry loops.
const maxAttempts = 4

// Store provides access to the projects collection. Phases, materials and
// updates are embedded; every mutation here touches exactly one project.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New creates a new projects store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects"), now: time.Now}
}

// stamp returns the current time at the precision Mongo stores, so values
// returned to callers compare equal to what a later read returns.
func (s *Store) stamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Create validates and inserts a new project. The project starts in
// "planning"; every seeded phase gets a fresh id, empty updates, and status
// "pending".
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)

	problems := map[string]string{}
	if p.Name == "" {
		problems["name"] = "name is required"
	}
	if p.Description == "" {
		problems["description"] = "description is required"
	}
	if p.HomeownerID.IsZero() {
		problems["homeownerId"] = "homeowner is required"
	}
	if p.Budget != nil && *p.Budget < 0 {
		problems["budget"] = "budget cannot be negative"
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		problems["endDate"] = "end date is before start date"
	}

	phases := make([]models.Phase, 0, len(p.Timeline))
	for _, ph := range p.Timeline {
		name := strings.TrimSpace(ph.Name)
		if name == "" {
			problems["timeline"] = "every phase needs a name"
			continue
		}
		phases = append(phases, models.Phase{
			ID:          models.NewID(),
			Name:        name,
			Description: strings.TrimSpace(ph.Description),
			StartDate:   ph.StartDate,
			EndDate:     ph.EndDate,
			Status:      models.PhasePending,
			Materials:   CleanMaterials(ph.Materials),
			Updates:     []models.Update{},
		})
	}
	if len(problems) > 0 {
		return models.Project{}, apperr.ValidationDetails("missing required fields", problems)
	}

	now := s.stamp()
	p.ID = primitive.NewObjectID()
	p.Status = models.ProjectPlanning
	p.Timeline = phases
	p.EngineerIDs = uniqueIDs(p.EngineerIDs)
	p.ManagerIDs = uniqueIDs(p.ManagerIDs)
	if p.FloorPlans == nil {
		p.FloorPlans = []models.FileUpload{}
	}
	if p.Images == nil {
		p.Images = []models.FileUpload{}
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, apperr.Internal("insert project", err)
	}
	return p, nil
}

// GetByID loads a project by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, apperr.Internal("load project", err)
	}
	return &p, nil
}

// List returns every project, most recently updated first.
func (s *Store) List(ctx context.Context) ([]models.Project, error) {
	return s.find(ctx, bson.M{})
}

// ListForUser returns the projects visible to the user: all of them for
// admins, owned ones for homeowners, assigned ones for engineers and
// managers, and none for any other role.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID, role string) ([]models.Project, error) {
	var filter bson.M
	switch strings.ToLower(role) {
	case models.RoleAdmin:
		filter = bson.M{}
	case models.RoleHomeowner:
		filter = bson.M{"homeowner_id": userID}
	case models.RoleEngineer:
		filter = bson.M{"engineer_ids": userID}
	case models.RoleManager:
		filter = bson.M{"manager_ids": userID}
	default:
		return []models.Project{}, nil
	}
	return s.find(ctx, filter)
}

// Count returns the number of projects, optionally restricted to a status.
func (s *Store) Count(ctx context.Context, status string) (int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	n, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return 0, apperr.Internal("count projects", err)
	}
	return n, nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Internal("list projects", err)
	}
	defer cur.Close(ctx)

	out := []models.Project{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Internal("decode projects", err)
	}
	return out, nil
}

// Patch holds the top-level fields an admin may change. Nil fields are left
// alone.
type Patch struct {
	Name        *string
	Description *string
	Budget      *float64
	StartDate   *time.Time
	EndDate     *time.Time
	HomeownerID *primitive.ObjectID
	EngineerIDs *[]primitive.ObjectID
	ManagerIDs  *[]primitive.ObjectID
	Status      *string
	FloorPlans  *[]models.FileUpload
	Images      *[]models.FileUpload
	CoverImage  *models.FileUpload

	// Timeline replaces the phase list. Phases are matched to existing ones
	// by id, then by name; matched phases keep their updates, and their
	// materials unless new ones are given. Unmatched phases are created fresh.
	Timeline *[]models.Phase
}

func (pt Patch) set() (bson.M, error) {
	set := bson.M{}
	problems := map[string]string{}

	if pt.Name != nil {
		v := strings.TrimSpace(*pt.Name)
		if v == "" {
			problems["name"] = "name is required"
		}
		set["name"] = v
	}
	if pt.Description != nil {
		v := strings.TrimSpace(*pt.Description)
		if v == "" {
			problems["description"] = "description is required"
		}
		set["description"] = v
	}
	if pt.Budget != nil {
		if *pt.Budget < 0 {
			problems["budget"] = "budget cannot be negative"
		}
		set["budget"] = *pt.Budget
	}
	if pt.StartDate != nil {
		set["start_date"] = *pt.StartDate
	}
	if pt.EndDate != nil {
		set["end_date"] = *pt.EndDate
	}
	if pt.HomeownerID != nil {
		if pt.HomeownerID.IsZero() {
			problems["homeownerId"] = "homeowner is required"
		}
		set["homeowner_id"] = *pt.HomeownerID
	}
	if pt.EngineerIDs != nil {
		set["engineer_ids"] = uniqueIDs(*pt.EngineerIDs)
	}
	if pt.ManagerIDs != nil {
		set["manager_ids"] = uniqueIDs(*pt.ManagerIDs)
	}
	if pt.Status != nil {
		if !models.IsValidProjectStatus(*pt.Status) {
			problems["status"] = "status must be planning, in-progress, completed or on-hold"
		}
		set["status"] = *pt.Status
	}
	if pt.FloorPlans != nil {
		set["floor_plans"] = nonNilFiles(*pt.FloorPlans)
	}
	if pt.Images != nil {
		set["images"] = nonNilFiles(*pt.Images)
	}
	if pt.CoverImage != nil {
		set["cover_image"] = *pt.CoverImage
	}
	if pt.Timeline != nil {
		for _, ph := range *pt.Timeline {
			if strings.TrimSpace(ph.Name) == "" {
				problems["timeline"] = "every phase needs a name"
			}
			if ph.Status != "" && !models.IsValidPhaseStatus(ph.Status) {
				problems["timeline"] = "phase status must be pending, in-progress, completed or delayed"
			}
		}
	}

	if len(problems) > 0 {
		return nil, apperr.ValidationDetails("invalid project fields", problems)
	}
	return set, nil
}

// Update merges the given fields into the project and always refreshes
// updated_at. It returns the project as stored after the write.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, pt Patch) (*models.Project, error) {
	set, err := pt.set()
	if err != nil {
		return nil, err
	}

	if pt.Timeline == nil {
		set["updated_at"] = s.stamp()
		return s.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
			"$set": set,
			"$inc": bson.M{"revision": 1},
		})
	}

	// Timeline edits need the current phases to carry updates across, so
	// they go through a load-merge-write cycle guarded by the revision.
	for attempt := 0; attempt < maxAttempts; attempt++ {
		cur, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		set["timeline"] = mergeTimeline(cur.Timeline, *pt.Timeline)
		set["updated_at"] = s.stamp()

		p, err := s.findOneAndUpdate(ctx, bson.M{"_id": id, "revision": revisionGuard(cur.Revision)}, bson.M{
			"$set": set,
			"$inc": bson.M{"revision": 1},
		})
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return p, err
	}
	return nil, ErrConcurrentUpdate
}

func (s *Store) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Project, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Project
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, apperr.Internal("update project", err)
	}
	return &p, nil
}

// mergeTimeline builds the new phase list from incoming, preserving each
// matched phase's id and updates.
func mergeTimeline(existing, incoming []models.Phase) []models.Phase {
	used := make([]bool, len(existing))
	match := func(ph models.Phase) int {
		if ph.ID != "" {
			for i := range existing {
				if !used[i] && existing[i].ID == ph.ID {
					return i
				}
			}
		}
		name := strings.TrimSpace(ph.Name)
		for i := range existing {
			if !used[i] && existing[i].Name == name && (ph.ID == "" || existing[i].ID == "") {
				return i
			}
		}
		return -1
	}

	out := make([]models.Phase, 0, len(incoming))
	for _, in := range incoming {
		next := models.Phase{
			Name:        strings.TrimSpace(in.Name),
			Description: strings.TrimSpace(in.Description),
			StartDate:   in.StartDate,
			EndDate:     in.EndDate,
			Status:      in.Status,
			Materials:   CleanMaterials(in.Materials),
			Updates:     []models.Update{},
		}
		if i := match(in); i >= 0 {
			used[i] = true
			prev := existing[i]
			next.ID = prev.ID
			if prev.Updates != nil {
				next.Updates = prev.Updates
			}
			if in.Materials == nil {
				next.Materials = prev.Materials
			}
			if next.Status == "" {
				next.Status = prev.Status
			}
		}
		if next.ID == "" {
			next.ID = models.NewID()
		}
		if next.Status == "" {
			next.Status = models.PhasePending
		}
		if next.Materials == nil {
			next.Materials = []models.Material{}
		}
		out = append(out, next)
	}
	return out
}

// revisionGuard matches the loaded revision. Documents written before the
// revision counter existed have no field, which reads back as zero.
func revisionGuard(rev int64) interface{} {
	if rev == 0 {
		return bson.M{"$in": bson.A{int64(0), nil}}
	}
	return rev
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nonNilFiles(in []models.FileUpload) []models.FileUpload {
	if in == nil {
		return []models.FileUpload{}
	}
	return in
}
