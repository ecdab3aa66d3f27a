package settingscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dalemusser/sitetrack/internal/domain/models"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is where the settings are cached.
const DefaultRedisKey = "sitetrack:settings"

// RedisConfig holds the connection settings for the shared cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient opens a client for cfg. It does not dial until first use.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Redis is a Backend shared by every instance pointed at the same server,
// so an admin write on one instance invalidates them all.
type Redis struct {
	rdb *redis.Client
	key string
}

// NewRedis wraps rdb. An empty key uses DefaultRedisKey.
func NewRedis(rdb *redis.Client, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{rdb: rdb, key: key}
}

func (r *Redis) Get(ctx context.Context) (models.SiteSettings, bool, error) {
	raw, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.SiteSettings{}, false, nil
	}
	if err != nil {
		return models.SiteSettings{}, false, err
	}
	var s models.SiteSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.SiteSettings{}, false, err
	}
	return s, true, nil
}

func (r *Redis) Set(ctx context.Context, s models.SiteSettings, ttl time.Duration) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.key, raw, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context) error {
	return r.rdb.Del(ctx, r.key).Err()
}
