// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	projectstore "github.com/dalemusser/sitetrack/internal/app/store/projects"
	userstore "github.com/dalemusser/sitetrack/internal/app/store/users"
	"github.com/dalemusser/sitetrack/internal/app/system/timeouts"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It applies the configured storage deadlines, creates the first admin when
// asked to, and assigns ids to phases stored before phases carried them.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	if err := ensureAdmin(ctx, deps, appCfg.BootstrapAdminMobile, appCfg.BootstrapAdminName, logger); err != nil {
		return err
	}

	batchCtx, cancel := context.WithTimeout(ctx, timeouts.Batch())
	defer cancel()
	touched, err := projectstore.New(deps.MongoDatabase).BackfillPhaseIDs(batchCtx)
	if err != nil {
		return fmt.Errorf("backfill phase ids: %w", err)
	}
	if touched > 0 {
		logger.Info("assigned ids to legacy phases", zap.Int("projects", touched))
	}
	return nil
}

// ensureAdmin makes sure at least one admin can sign in. When admins already
// exist it does nothing. Otherwise the user with mobile is promoted, or
// created when no such user exists. A blank mobile skips the check.
func ensureAdmin(ctx context.Context, deps DBDeps, mobile, name string, logger *zap.Logger) error {
	if mobile == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	users := userstore.New(deps.MongoDatabase)
	admins, err := users.Count(ctx, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins > 0 {
		return nil
	}

	existing, err := users.GetByMobile(ctx, mobile)
	switch {
	case err == nil:
		role := models.RoleAdmin
		if _, err := users.Update(ctx, existing.ID, userstore.Patch{Role: &role}); err != nil {
			return fmt.Errorf("promote bootstrap admin: %w", err)
		}
		logger.Info("promoted existing user to admin",
			zap.String("user_id", existing.ID.Hex()),
			zap.String("previous_role", existing.Role))
		return nil
	case !errors.Is(err, userstore.ErrNotFound):
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}

	if name == "" {
		name = "Administrator"
	}
	created, err := users.Create(ctx, models.User{Name: name, Mobile: mobile, Role: models.RoleAdmin})
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	logger.Info("created bootstrap admin", zap.String("user_id", created.ID.Hex()))
	return nil
}
