// Package seed loads users and projects from a YAML file into an empty or
// partly populated database. Users are matched by mobile and projects by
// name, so running the same file twice adds nothing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	projectstore "github.com/dalemusser/sitetrack/internal/app/store/projects"
	userstore "github.com/dalemusser/sitetrack/internal/app/store/users"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File is the top-level YAML document.
type File struct {
	Users    []User    `yaml:"users"`
	Projects []Project `yaml:"projects"`
}

// User is a seeded account. Key is how projects refer to it.
type User struct {
	Key    string `yaml:"key"`
	Name   string `yaml:"name"`
	Mobile string `yaml:"mobile"`
	Role   string `yaml:"role"`
}

// Project is a seeded project. People are referenced by user key.
type Project struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Budget      *float64   `yaml:"budget"`
	StartDate   *time.Time `yaml:"startDate"`
	EndDate     *time.Time `yaml:"endDate"`
	Homeowner   string     `yaml:"homeowner"`
	Engineers   []string   `yaml:"engineers"`
	Managers    []string   `yaml:"managers"`
	Phases      []Phase    `yaml:"phases"`
}

type Phase struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	StartDate   *time.Time `yaml:"startDate"`
	EndDate     *time.Time `yaml:"endDate"`
	Materials   []Material `yaml:"materials"`
}

type Material struct {
	Name     string   `yaml:"name"`
	Quantity float64  `yaml:"quantity"`
	Unit     string   `yaml:"unit"`
	Cost     *float64 `yaml:"cost"`
	Supplier string   `yaml:"supplier"`
}

// Result counts what Apply wrote.
type Result struct {
	UsersCreated    int
	UsersExisting   int
	ProjectsCreated int
	ProjectsSkipped int
}

// Parse decodes a seed file and checks that every project reference names a
// user key defined in the same file.
func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("decode seed file: %w", err)
	}

	keys := make(map[string]bool, len(f.Users))
	for i, u := range f.Users {
		k := strings.TrimSpace(u.Key)
		if k == "" {
			return File{}, fmt.Errorf("users[%d]: key is required", i)
		}
		if keys[k] {
			return File{}, fmt.Errorf("users[%d]: duplicate key %q", i, k)
		}
		keys[k] = true
	}
	for i, p := range f.Projects {
		refs := append([]string{p.Homeowner}, p.Engineers...)
		refs = append(refs, p.Managers...)
		for _, ref := range refs {
			if !keys[strings.TrimSpace(ref)] {
				return File{}, fmt.Errorf("projects[%d] %q: unknown user key %q", i, p.Name, ref)
			}
		}
	}
	return f, nil
}

// Apply writes f through the user and project stores.
func Apply(ctx context.Context, db *mongo.Database, f File, logger *zap.Logger) (Result, error) {
	var res Result
	users := userstore.New(db)
	projects := projectstore.New(db)

	ids := make(map[string]primitive.ObjectID, len(f.Users))
	for _, su := range f.Users {
		existing, err := users.GetByMobile(ctx, su.Mobile)
		switch {
		case err == nil:
			ids[strings.TrimSpace(su.Key)] = existing.ID
			res.UsersExisting++
			continue
		case !errors.Is(err, userstore.ErrNotFound):
			return res, fmt.Errorf("look up user %q: %w", su.Key, err)
		}

		created, err := users.Create(ctx, models.User{Name: su.Name, Mobile: su.Mobile, Role: su.Role})
		if err != nil {
			return res, fmt.Errorf("create user %q: %w", su.Key, err)
		}
		ids[strings.TrimSpace(su.Key)] = created.ID
		res.UsersCreated++
		logger.Info("seeded user", zap.String("key", su.Key), zap.String("role", created.Role))
	}

	existing, err := projects.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list projects: %w", err)
	}
	names := make(map[string]bool, len(existing))
	for _, p := range existing {
		names[p.Name] = true
	}

	for _, sp := range f.Projects {
		name := strings.TrimSpace(sp.Name)
		if names[name] {
			res.ProjectsSkipped++
			continue
		}

		p := models.Project{
			Name:        name,
			Description: sp.Description,
			Budget:      sp.Budget,
			StartDate:   sp.StartDate,
			EndDate:     sp.EndDate,
			HomeownerID: ids[strings.TrimSpace(sp.Homeowner)],
			EngineerIDs: lookup(ids, sp.Engineers),
			ManagerIDs:  lookup(ids, sp.Managers),
		}
		for _, ph := range sp.Phases {
			mats := make([]models.Material, 0, len(ph.Materials))
			for _, m := range ph.Materials {
				mats = append(mats, models.Material{
					Name:     m.Name,
					Quantity: m.Quantity,
					Unit:     m.Unit,
					Cost:     m.Cost,
					Supplier: m.Supplier,
				})
			}
			p.Timeline = append(p.Timeline, models.Phase{
				Name:        ph.Name,
				Description: ph.Description,
				StartDate:   ph.StartDate,
				EndDate:     ph.EndDate,
				Materials:   mats,
			})
		}

		created, err := projects.Create(ctx, p)
		if err != nil {
			return res, fmt.Errorf("create project %q: %w", name, err)
		}
		names[name] = true
		res.ProjectsCreated++
		logger.Info("seeded project", zap.String("name", name), zap.Int("phases", len(created.Timeline)))
	}

	return res, nil
}

func lookup(ids map[string]primitive.ObjectID, keys []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(keys))
	for _, k := range keys {
		out = append(out, ids[strings.TrimSpace(k)])
	}
	return out
}
