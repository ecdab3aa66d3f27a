package settingscache_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/dalemusser/sitetrack/internal/app/system/settingscache"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type countingLoader struct {
	calls int
	value models.SiteSettings
	err   error
}

func (l *countingLoader) load(context.Context) (models.SiteSettings, error) {
	l.calls++
	return l.value, l.err
}

func TestService_CachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	l := &countingLoader{value: models.SiteSettings{AppName: "One"}}
	svc := settingscache.New(l.load, nil, time.Minute, nil)

	for i := 0; i < 3; i++ {
		got, err := svc.Get(ctx)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.AppName != "One" {
			t.Errorf("AppName = %q", got.AppName)
		}
	}
	if l.calls != 1 {
		t.Errorf("expected 1 load, got %d", l.calls)
	}

	l.value.AppName = "Two"
	svc.Invalidate(ctx)
	got, _ := svc.Get(ctx)
	if got.AppName != "Two" || l.calls != 2 {
		t.Errorf("expected reload after invalidate, got %q after %d loads", got.AppName, l.calls)
	}
}

func TestService_LoaderError(t *testing.T) {
	l := &countingLoader{err: errors.New("down")}
	svc := settingscache.New(l.load, nil, time.Minute, nil)

	if _, err := svc.Get(context.Background()); err == nil {
		t.Fatal("expected loader error")
	}
	// Failures are not cached.
	l.err = nil
	l.value = models.SiteSettings{AppName: "Back"}
	got, err := svc.Get(context.Background())
	if err != nil || got.AppName != "Back" {
		t.Errorf("Get after recovery = %q, %v", got.AppName, err)
	}
}

func TestMemory_Expires(t *testing.T) {
	ctx := context.Background()
	m := settingscache.NewMemory()

	if err := m.Set(ctx, models.SiteSettings{AppName: "x"}, time.Nanosecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, ok, _ := m.Get(ctx); ok {
		t.Error("expected entry to expire")
	}
}

type failingBackend struct{}

func (failingBackend) Get(context.Context) (models.SiteSettings, bool, error) {
	return models.SiteSettings{}, false, errors.New("cache down")
}
func (failingBackend) Set(context.Context, models.SiteSettings, time.Duration) error {
	return errors.New("cache down")
}
func (failingBackend) Delete(context.Context) error { return errors.New("cache down") }

func TestService_BackendFailureFallsThrough(t *testing.T) {
	l := &countingLoader{value: models.SiteSettings{AppName: "Direct"}}
	svc := settingscache.New(l.load, failingBackend{}, time.Minute, nil)

	got, err := svc.Get(context.Background())
	if err != nil || got.AppName != "Direct" {
		t.Errorf("Get = %q, %v", got.AppName, err)
	}
	svc.Invalidate(context.Background())
}

func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("SITETRACK_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := settingscache.NewRedisClient(settingscache.RedisConfig{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}

	key := "sitetrack:test:" + primitive.NewObjectID().Hex()
	backend := settingscache.NewRedis(rdb, key)
	t.Cleanup(func() { _ = backend.Delete(context.Background()) })

	if _, ok, err := backend.Get(ctx); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := backend.Set(ctx, models.SiteSettings{AppName: "Shared", PrimaryColor: "#111111"}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok, err := backend.Get(ctx)
	if err != nil || !ok || got.AppName != "Shared" || got.PrimaryColor != "#111111" {
		t.Errorf("Get = %+v, %v, %v", got, ok, err)
	}
	if err := backend.Delete(ctx); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := backend.Get(ctx); ok {
		t.Error("expected miss after delete")
	}
}
