// internal/app/store/projects/phases.go
package projectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PhaseRef identifies a phase. ID wins when it matches; Name is the fallback
// for clients holding a legacy phase that has no id yet.
type PhaseRef struct {
	ID   string
	Name string
}

func (r PhaseRef) empty() bool {
	return r.ID == "" && strings.TrimSpace(r.Name) == ""
}

// find returns the index of the referenced phase, or -1.
func (r PhaseRef) find(timeline []models.Phase) int {
	if r.ID != "" {
		for i := range timeline {
			if timeline[i].ID == r.ID {
				return i
			}
		}
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return -1
	}
	for i := range timeline {
		if timeline[i].Name == name {
			return i
		}
	}
	return -1
}

// FindPhase returns the phase of p that ref names, or nil.
func FindPhase(p *models.Project, ref PhaseRef) *models.Phase {
	if p == nil {
		return nil
	}
	if i := ref.find(p.Timeline); i >= 0 {
		return &p.Timeline[i]
	}
	return nil
}

// FindUpdate returns the update with the given id on ph, or nil.
func FindUpdate(ph *models.Phase, updateID string) *models.Update {
	if ph == nil || updateID == "" {
		return nil
	}
	for i := range ph.Updates {
		if ph.Updates[i].ID == updateID {
			return &ph.Updates[i]
		}
	}
	return nil
}

// phaseOp is one mutation of a single phase.
//
// targeted performs the write as a single positional update filtered on the
// phase id and reports whether a document matched. rewrite applies the same
// change to an in-memory phase for the whole-document path. missing, when
// set, explains a targeted miss on a phase that does exist.
type phaseOp struct {
	targeted func(ctx context.Context, phaseID string) (bool, error)
	rewrite  func(ph *models.Phase) error
	missing  func(ph *models.Phase) error
}

// applyToPhase runs op against the referenced phase.
//
// The fast path is one targeted write. When the phase has to be found by
// name, or has no id, the project is loaded and a guarded positional write
// gives the phase an id first. Only when that keeps losing races does it
// fall back to rewriting the whole timeline, guarded by the revision.
func (s *Store) applyToPhase(ctx context.Context, projectID primitive.ObjectID, ref PhaseRef, op phaseOp) error {
	if ref.empty() {
		return apperr.Validation("phase id or name is required")
	}

	if ref.ID != "" {
		ok, err := op.targeted(ctx, ref.ID)
		if err != nil || ok {
			return err
		}
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		p, err := s.GetByID(ctx, projectID)
		if err != nil {
			return err
		}
		i := ref.find(p.Timeline)
		if i < 0 {
			return ErrPhaseNotFound
		}
		ph := p.Timeline[i]

		id := ph.ID
		if id == "" {
			id = models.NewID()
			assigned, err := s.assignPhaseID(ctx, projectID, i, ph, id)
			if err != nil {
				return err
			}
			if !assigned {
				continue
			}
		}

		ok, err := op.targeted(ctx, id)
		if err != nil || ok {
			return err
		}
		if op.missing != nil {
			if err := op.missing(&ph); err != nil {
				return err
			}
		}
	}

	return s.rewritePhase(ctx, projectID, ref, op.rewrite)
}

// assignPhaseID sets the id of the id-less phase at index i, provided the
// phase there still has the expected name and still has no id. A phase
// without an updates array gets an empty one in the same write.
func (s *Store) assignPhaseID(ctx context.Context, projectID primitive.ObjectID, i int, ph models.Phase, id string) (bool, error) {
	at := fmt.Sprintf("timeline.%d", i)
	filter := bson.M{
		"_id":        projectID,
		at + ".name": ph.Name,
		at + "._id":  bson.M{"$in": bson.A{nil, ""}},
	}
	set := bson.M{at + "._id": id}
	if ph.Updates == nil {
		filter[at+".updates"] = nil
		set[at+".updates"] = bson.A{}
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{
		"$set": set,
		"$inc": bson.M{"revision": 1},
	})
	if err != nil {
		return false, apperr.Internal("assign phase id", err)
	}
	return res.MatchedCount > 0, nil
}

// rewritePhase loads the project, applies fn to the referenced phase, and
// writes the entire timeline back if nobody else wrote in between.
func (s *Store) rewritePhase(ctx context.Context, projectID primitive.ObjectID, ref PhaseRef, fn func(ph *models.Phase) error) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		p, err := s.GetByID(ctx, projectID)
		if err != nil {
			return err
		}
		i := ref.find(p.Timeline)
		if i < 0 {
			return ErrPhaseNotFound
		}
		fillTimeline(p.Timeline)
		if err := fn(&p.Timeline[i]); err != nil {
			return err
		}

		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": projectID, "revision": revisionGuard(p.Revision)},
			bson.M{
				"$set": bson.M{"timeline": p.Timeline, "updated_at": s.stamp()},
				"$inc": bson.M{"revision": 1},
			},
		)
		if err != nil {
			return apperr.Internal("rewrite timeline", err)
		}
		if res.MatchedCount > 0 {
			return nil
		}
	}
	return ErrConcurrentUpdate
}

// updatePhase runs a positional update against the phase with the given id.
func (s *Store) updatePhase(ctx context.Context, projectID primitive.ObjectID, phaseID string, update bson.M) (bool, error) {
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
		update["$set"] = set
	}
	set["updated_at"] = s.stamp()
	update["$inc"] = bson.M{"revision": 1}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": projectID, "timeline._id": phaseID}, update)
	if err != nil {
		return false, apperr.Internal("update phase", err)
	}
	return res.MatchedCount > 0, nil
}

// AddUpdate appends u to the referenced phase and returns it as stored. A
// missing id or timestamp is filled in.
func (s *Store) AddUpdate(ctx context.Context, projectID primitive.ObjectID, ref PhaseRef, u models.Update) (models.Update, error) {
	u = s.prepareUpdate(u)
	if u.Message == "" {
		return models.Update{}, apperr.Validation("message is required")
	}

	err := s.applyToPhase(ctx, projectID, ref, phaseOp{
		targeted: func(ctx context.Context, phaseID string) (bool, error) {
			return s.updatePhase(ctx, projectID, phaseID, bson.M{
				"$push": bson.M{"timeline.$.updates": u},
			})
		},
		rewrite: func(ph *models.Phase) error {
			ph.Updates = append(ph.Updates, u)
			return nil
		},
	})
	if err != nil {
		return models.Update{}, err
	}
	return u, nil
}

// DeleteUpdate removes one update from the referenced phase.
func (s *Store) DeleteUpdate(ctx context.Context, projectID primitive.ObjectID, ref PhaseRef, updateID string) error {
	if updateID == "" {
		return apperr.Validation("update id is required")
	}
	hasUpdate := func(ph *models.Phase) bool {
		for _, u := range ph.Updates {
			if u.ID == updateID {
				return true
			}
		}
		return false
	}

	return s.applyToPhase(ctx, projectID, ref, phaseOp{
		targeted: func(ctx context.Context, phaseID string) (bool, error) {
			res, err := s.c.UpdateOne(ctx,
				bson.M{
					"_id": projectID,
					"timeline": bson.M{"$elemMatch": bson.M{
						"_id":         phaseID,
						"updates._id": updateID,
					}},
				},
				bson.M{
					"$pull": bson.M{"timeline.$.updates": bson.M{"_id": updateID}},
					"$set":  bson.M{"updated_at": s.stamp()},
					"$inc":  bson.M{"revision": 1},
				},
			)
			if err != nil {
				return false, apperr.Internal("delete update", err)
			}
			return res.MatchedCount > 0, nil
		},
		rewrite: func(ph *models.Phase) error {
			kept := ph.Updates[:0]
			for _, u := range ph.Updates {
				if u.ID != updateID {
					kept = append(kept, u)
				}
			}
			if len(kept) == len(ph.Updates) {
				return ErrUpdateNotFound
			}
			ph.Updates = kept
			return nil
		},
		missing: func(ph *models.Phase) error {
			if !hasUpdate(ph) {
				return ErrUpdateNotFound
			}
			return nil
		},
	})
}

// ReplaceMaterials swaps the phase's material list for a cleaned copy of
// items and returns what was stored.
func (s *Store) ReplaceMaterials(ctx context.Context, projectID primitive.ObjectID, ref PhaseRef, items []models.Material) ([]models.Material, error) {
	clean := CleanMaterials(items)

	err := s.applyToPhase(ctx, projectID, ref, phaseOp{
		targeted: func(ctx context.Context, phaseID string) (bool, error) {
			return s.updatePhase(ctx, projectID, phaseID, bson.M{
				"$set": bson.M{"timeline.$.materials": clean},
			})
		},
		rewrite: func(ph *models.Phase) error {
			ph.Materials = clean
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return clean, nil
}

// SetPhaseStatus changes the status of the referenced phase.
func (s *Store) SetPhaseStatus(ctx context.Context, projectID primitive.ObjectID, ref PhaseRef, status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	if !models.IsValidPhaseStatus(status) {
		return apperr.ValidationDetails("invalid phase status", map[string]string{
			"status": "must be pending, in-progress, completed or delayed",
		})
	}

	return s.applyToPhase(ctx, projectID, ref, phaseOp{
		targeted: func(ctx context.Context, phaseID string) (bool, error) {
			return s.updatePhase(ctx, projectID, phaseID, bson.M{
				"$set": bson.M{"timeline.$.status": status},
			})
		},
		rewrite: func(ph *models.Phase) error {
			ph.Status = status
			return nil
		},
	})
}

// PostInput is a progress post from the field: a message, a status change,
// or both.
type PostInput struct {
	Update models.Update
	Status string
}

// PostUpdate records a progress post as a single write. When only a status
// is given the message becomes "Status changed to <status>". It returns the
// update as stored.
func (s *Store) PostUpdate(ctx context.Context, projectID primitive.ObjectID, ref PhaseRef, in PostInput) (models.Update, error) {
	status := strings.ToLower(strings.TrimSpace(in.Status))
	u := in.Update
	u.Message = strings.TrimSpace(u.Message)

	if u.Message == "" && status == "" {
		return models.Update{}, apperr.Validation("message or status is required")
	}
	if status != "" && !models.IsValidPhaseStatus(status) {
		return models.Update{}, apperr.ValidationDetails("invalid phase status", map[string]string{
			"status": "must be pending, in-progress, completed or delayed",
		})
	}
	if u.Message == "" {
		u.Message = "Status changed to " + status
	}
	u = s.prepareUpdate(u)

	set := bson.M{}
	if status != "" {
		set["timeline.$.status"] = status
	}

	err := s.applyToPhase(ctx, projectID, ref, phaseOp{
		targeted: func(ctx context.Context, phaseID string) (bool, error) {
			return s.updatePhase(ctx, projectID, phaseID, bson.M{
				"$push": bson.M{"timeline.$.updates": u},
				"$set":  copyM(set),
			})
		},
		rewrite: func(ph *models.Phase) error {
			ph.Updates = append(ph.Updates, u)
			if status != "" {
				ph.Status = status
			}
			return nil
		},
	})
	if err != nil {
		return models.Update{}, err
	}
	return u, nil
}

// EnsurePhaseIDs gives every id-less phase of the project an id in one
// guarded write. It returns how many phases were changed.
func (s *Store) EnsurePhaseIDs(ctx context.Context, projectID primitive.ObjectID) (int, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		p, err := s.GetByID(ctx, projectID)
		if err != nil {
			return 0, err
		}
		n := fillTimeline(p.Timeline)
		if n == 0 {
			return 0, nil
		}

		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": projectID, "revision": revisionGuard(p.Revision)},
			bson.M{
				"$set": bson.M{"timeline": p.Timeline},
				"$inc": bson.M{"revision": 1},
			},
		)
		if err != nil {
			return 0, apperr.Internal("assign phase ids", err)
		}
		if res.MatchedCount > 0 {
			return n, nil
		}
	}
	return 0, ErrConcurrentUpdate
}

// BackfillPhaseIDs runs EnsurePhaseIDs over every project that still has a
// phase without an id. It returns the number of projects touched.
func (s *Store) BackfillPhaseIDs(ctx context.Context) (int, error) {
	filter := bson.M{"timeline": bson.M{"$elemMatch": bson.M{"_id": bson.M{"$in": bson.A{nil, ""}}}}}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return 0, apperr.Internal("find legacy projects", err)
	}
	defer cur.Close(ctx)

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return 0, apperr.Internal("decode legacy project", err)
		}
		ids = append(ids, row.ID)
	}
	if err := cur.Err(); err != nil {
		return 0, apperr.Internal("iterate legacy projects", err)
	}

	touched := 0
	for _, id := range ids {
		n, err := s.EnsurePhaseIDs(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return touched, err
		}
		if n > 0 {
			touched++
		}
	}
	return touched, nil
}

func (s *Store) prepareUpdate(u models.Update) models.Update {
	u.Message = strings.TrimSpace(u.Message)
	if u.ID == "" {
		u.ID = models.NewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.stamp()
	} else {
		u.CreatedAt = u.CreatedAt.UTC().Truncate(time.Millisecond)
	}
	return u
}

// fillTimeline gives id-less phases an id and replaces nil lists with empty
// ones so later positional pushes have an array to append to. It returns the
// number of ids assigned.
func fillTimeline(timeline []models.Phase) int {
	n := 0
	for i := range timeline {
		ph := &timeline[i]
		if ph.ID == "" {
			ph.ID = models.NewID()
			n++
		}
		if ph.Updates == nil {
			ph.Updates = []models.Update{}
		}
		if ph.Materials == nil {
			ph.Materials = []models.Material{}
		}
	}
	return n
}

func copyM(m bson.M) bson.M {
	out := make(bson.M, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
