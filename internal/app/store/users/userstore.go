package userstore

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/normalize"
	"github.com/dalemusser/sitetrack/internal/app/system/paging"
	"github.com/dalemusser/sitetrack/internal/app/system/txn"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = apperr.NotFound("user not found")
	// ErrDuplicateMobile is returned when the mobile number is already taken.
	ErrDuplicateMobile = apperr.Conflict("a user with this mobile number already exists")
	// ErrLastAdmin is returned when a change would leave no admin account.
	ErrLastAdmin = apperr.Conflict("at least one admin account must remain")
)

type Store struct {
	c      *mongo.Collection
	guards *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users"), guards: db.Collection("guards")}
}

func checkFields(name, mobile, role string) error {
	problems := map[string]string{}
	if name == "" {
		problems["name"] = "name is required"
	}
	if mobile == "" {
		problems["mobile"] = "mobile is required"
	}
	if !models.IsValidRole(role) {
		problems["role"] = "role must be admin, manager, engineer or homeowner"
	}
	if len(problems) > 0 {
		return apperr.ValidationDetails("invalid user fields", problems)
	}
	return nil
}

// Create inserts a new user after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	u.Mobile = normalize.Mobile(u.Mobile)
	u.Role = normalize.Role(u.Role)
	if err := checkFields(u.Name, u.Mobile, u.Role); err != nil {
		return models.User{}, err
	}

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateMobile
		}
		return models.User{}, apperr.Internal("insert user", err)
	}
	return u, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, apperr.Internal("load user", err)
	}
	return &u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByMobile looks up the user who signs in with mobile. Whitespace in the
// input is ignored.
func (s *Store) GetByMobile(ctx context.Context, mobile string) (*models.User, error) {
	m := normalize.Mobile(mobile)
	if m == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"mobile": m})
}

// ExistingMobiles returns which of mobiles already belong to a user.
func (s *Store) ExistingMobiles(ctx context.Context, mobiles []string) ([]string, error) {
	if len(mobiles) == 0 {
		return nil, nil
	}
	opts := options.Find().SetProjection(bson.M{"mobile": 1}).SetSort(bson.M{"mobile": 1})
	cur, err := s.c.Find(ctx, bson.M{"mobile": bson.M{"$in": mobiles}}, opts)
	if err != nil {
		return nil, apperr.Internal("find mobiles", err)
	}
	defer cur.Close(ctx)

	var out []string
	for cur.Next(ctx) {
		var row struct {
			Mobile string `bson:"mobile"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, apperr.Internal("decode mobile", err)
		}
		out = append(out, row.Mobile)
	}
	if err := cur.Err(); err != nil {
		return nil, apperr.Internal("iterate mobiles", err)
	}
	return out, nil
}

// List returns users sorted by name, optionally restricted to one role.
func (s *Store) List(ctx context.Context, role string) ([]models.User, error) {
	filter := bson.M{}
	if role = normalize.Role(role); role != "" {
		filter["role"] = role
	}
	return s.find(ctx, filter)
}

// ListPage returns one page of users sorted by name, optionally restricted
// to one role.
func (s *Store) ListPage(ctx context.Context, role string, k paging.Keyset) ([]models.User, paging.Page, error) {
	filter := bson.M{}
	if role = normalize.Role(role); role != "" {
		filter["role"] = role
	}
	maps.Copy(filter, k.Window("name_ci"))

	cur, err := s.c.Find(ctx, filter, k.Find("name_ci"))
	if err != nil {
		return nil, paging.Page{}, apperr.Internal("list users", err)
	}
	defer cur.Close(ctx)

	rows := []models.User{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, paging.Page{}, apperr.Internal("decode users", err)
	}
	rows, page := paging.Finish(k, rows,
		func(u models.User) string { return u.NameCI },
		func(u models.User) primitive.ObjectID { return u.ID })
	return rows, page, nil
}

// ListByIDs returns the users with the given ids. Unknown ids are skipped.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Internal("list users", err)
	}
	defer cur.Close(ctx)

	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Internal("decode users", err)
	}
	return out, nil
}

// Count returns the number of users, optionally restricted to one role.
func (s *Store) Count(ctx context.Context, role string) (int64, error) {
	filter := bson.M{}
	if role = normalize.Role(role); role != "" {
		filter["role"] = role
	}
	n, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return 0, apperr.Internal("count users", err)
	}
	return n, nil
}

// CountByRole returns user counts keyed by role.
func (s *Store) CountByRole(ctx context.Context) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$role"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, apperr.Internal("count users by role", err)
	}
	defer cur.Close(ctx)

	out := map[string]int64{
		models.RoleAdmin:     0,
		models.RoleManager:   0,
		models.RoleEngineer:  0,
		models.RoleHomeowner: 0,
	}
	for cur.Next(ctx) {
		var row struct {
			Role string `bson:"_id"`
			N    int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, apperr.Internal("decode role count", err)
		}
		out[row.Role] = row.N
	}
	if err := cur.Err(); err != nil {
		return nil, apperr.Internal("iterate role counts", err)
	}
	return out, nil
}

// Patch holds the fields an admin may change. Nil fields are left alone.
type Patch struct {
	Name   *string
	Mobile *string
	Role   *string
}

// Update applies p and returns the stored user. Demoting the only admin
// fails with ErrLastAdmin.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, p Patch) (*models.User, error) {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name, mobile, role := cur.Name, cur.Mobile, cur.Role
	if p.Name != nil {
		name = normalize.Name(*p.Name)
	}
	if p.Mobile != nil {
		mobile = normalize.Mobile(*p.Mobile)
	}
	if p.Role != nil {
		role = normalize.Role(*p.Role)
	}
	if err := checkFields(name, mobile, role); err != nil {
		return nil, err
	}

	set := bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"mobile":     mobile,
		"role":       role,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}

	if cur.Role != models.RoleAdmin || role == models.RoleAdmin {
		return s.apply(ctx, id, set, options.After)
	}

	if err := s.ensureOtherAdmin(ctx, id); err != nil {
		return nil, err
	}
	var out *models.User
	err = txn.Run(ctx, s.c.Database(), nil, func(ctx context.Context) error {
		out = nil
		if err := s.touchAdminGuard(ctx); err != nil {
			return err
		}
		before, err := s.apply(ctx, id, set, options.Before)
		if err != nil {
			return err
		}
		if err := s.ensureAnyAdmin(ctx); err != nil {
			restore := bson.M{
				"name":       before.Name,
				"name_ci":    before.NameCI,
				"mobile":     before.Mobile,
				"role":       before.Role,
				"updated_at": before.UpdatedAt,
			}
			if _, rerr := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": restore}); rerr != nil {
				return apperr.Internal("restore demoted admin", rerr)
			}
			return err
		}
		out, err = s.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// apply sets fields on one user and returns the document from the side
// of the write that ret selects.
func (s *Store) apply(ctx context.Context, id primitive.ObjectID, set bson.M, ret options.ReturnDocument) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(ret)
	var u models.User
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateMobile
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, apperr.Internal("update user", err)
	}
	return &u, nil
}

// Delete removes a user. Deleting the only admin fails with ErrLastAdmin.
// Project references to the user are left in place.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.Role != models.RoleAdmin {
		return s.deleteOne(ctx, id)
	}

	if err := s.ensureOtherAdmin(ctx, id); err != nil {
		return err
	}
	return txn.Run(ctx, s.c.Database(), nil, func(ctx context.Context) error {
		if err := s.touchAdminGuard(ctx); err != nil {
			return err
		}
		raw, err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Raw()
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return ErrNotFound
			}
			return apperr.Internal("delete user", err)
		}
		if err := s.ensureAnyAdmin(ctx); err != nil {
			if _, rerr := s.c.InsertOne(ctx, raw); rerr != nil {
				return apperr.Internal("restore deleted admin", rerr)
			}
			return err
		}
		return nil
	})
}

// DeleteByIDs removes the given users without the last-admin check. It
// undoes a partially applied bulk import.
func (s *Store) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return apperr.Internal("delete users", err)
	}
	return nil
}

func (s *Store) deleteOne(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Internal("delete user", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// touchAdminGuard writes the shared guard document so that two
// transactions changing admins conflict instead of both committing.
func (s *Store) touchAdminGuard(ctx context.Context) error {
	_, err := s.guards.UpdateOne(ctx,
		bson.M{"_id": "admins"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.Update().SetUpsert(true))
	if err != nil {
		return apperr.Internal("touch admin guard", err)
	}
	return nil
}

func (s *Store) ensureOtherAdmin(ctx context.Context, id primitive.ObjectID) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"role": models.RoleAdmin, "_id": bson.M{"$ne": id}})
	if err != nil {
		return apperr.Internal("count admins", err)
	}
	if n == 0 {
		return ErrLastAdmin
	}
	return nil
}

// ensureAnyAdmin recounts after a write; the earlier check may have raced.
func (s *Store) ensureAnyAdmin(ctx context.Context) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"role": models.RoleAdmin})
	if err != nil {
		return apperr.Internal("count admins", err)
	}
	if n == 0 {
		return ErrLastAdmin
	}
	return nil
}
