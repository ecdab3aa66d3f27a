// Package settingscache serves the site settings from a cache in front of
// the settings store. Admin writes call Invalidate; readers go through Get.
package settingscache

import (
	"context"
	"time"

	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.uber.org/zap"
)

// DefaultTTL bounds how stale a cached copy may get when an invalidation is
// missed, e.g. by another instance without a shared backend.
const DefaultTTL = 5 * time.Minute

// Loader reads the settings from their source of truth.
type Loader func(ctx context.Context) (models.SiteSettings, error)

// Backend stores one cached settings value.
type Backend interface {
	Get(ctx context.Context) (models.SiteSettings, bool, error)
	Set(ctx context.Context, s models.SiteSettings, ttl time.Duration) error
	Delete(ctx context.Context) error
}

// Service combines a loader with a cache backend.
type Service struct {
	load    Loader
	backend Backend
	ttl     time.Duration
	log     *zap.Logger
}

// New builds a Service. A nil backend means an in-process cache.
func New(load Loader, backend Backend, ttl time.Duration, logger *zap.Logger) *Service {
	if backend == nil {
		backend = NewMemory()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{load: load, backend: backend, ttl: ttl, log: logger}
}

// Get returns the cached settings, loading and caching them on a miss.
// Backend failures are logged and served from the loader.
func (s *Service) Get(ctx context.Context) (models.SiteSettings, error) {
	cached, ok, err := s.backend.Get(ctx)
	if err != nil {
		s.log.Warn("settings cache read failed", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	fresh, err := s.load(ctx)
	if err != nil {
		return models.SiteSettings{}, err
	}
	if err := s.backend.Set(ctx, fresh, s.ttl); err != nil {
		s.log.Warn("settings cache write failed", zap.Error(err))
	}
	return fresh, nil
}

// Invalidate drops the cached copy so the next Get reloads.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.backend.Delete(ctx); err != nil {
		s.log.Warn("settings cache invalidate failed", zap.Error(err))
	}
}
