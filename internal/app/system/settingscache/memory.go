package settingscache

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/sitetrack/internal/domain/models"
)

// Memory is a Backend local to one process.
type Memory struct {
	mu      sync.RWMutex
	value   models.SiteSettings
	expires time.Time
	set     bool
	now     func() time.Time
}

// NewMemory returns an empty in-process backend.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Get(_ context.Context) (models.SiteSettings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set || !m.now().Before(m.expires) {
		return models.SiteSettings{}, false, nil
	}
	return m.value, true, nil
}

func (m *Memory) Set(_ context.Context, s models.SiteSettings, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = s
	m.expires = m.now().Add(ttl)
	m.set = true
	return nil
}

func (m *Memory) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = models.SiteSettings{}
	m.set = false
	return nil
}
